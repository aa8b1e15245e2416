package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"lecture-sync/internal/model"
	"lecture-sync/internal/repository"
)

type seedAccount struct {
	Name     string
	Email    string
	Password string
	Role     string
}

var defaultAccounts = []seedAccount{
	{Name: "Administrator", Email: "admin@example.com", Password: "admin123", Role: model.RoleAdmin},
	{Name: "Demo Instructor", Email: "instructor@example.com", Password: "instructor123", Role: model.RoleInstructor},
}

func newSeedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "写入默认管理员与讲师账号（已存在则跳过）",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv()
			if err != nil {
				return err
			}
			defer e.close()

			repo := repository.NewRepository(e.db)
			created, err := seedUsers(cmd.Context(), repo.User, defaultAccounts, e.logger)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %d account(s)\n", created)
			return nil
		},
	}
}

// seedUsers 逐个写入账号，邮箱已存在的跳过
func seedUsers(ctx context.Context, users repository.UserRepository, accounts []seedAccount, logger *zap.Logger) (int, error) {
	created := 0
	for _, a := range accounts {
		_, err := users.GetByEmail(ctx, a.Email)
		if err == nil {
			logger.Info("账号已存在，跳过", zap.String("email", a.Email))
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return created, fmt.Errorf("查询账号 %s 失败: %w", a.Email, err)
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(a.Password), bcrypt.DefaultCost)
		if err != nil {
			return created, fmt.Errorf("密码哈希失败: %w", err)
		}

		if err := users.Create(ctx, &model.User{
			Name:         a.Name,
			Email:        a.Email,
			PasswordHash: string(hash),
			Role:         a.Role,
		}); err != nil {
			return created, fmt.Errorf("创建账号 %s 失败: %w", a.Email, err)
		}
		created++
		logger.Info("账号已创建", zap.String("email", a.Email), zap.String("role", a.Role))
	}
	return created, nil
}
