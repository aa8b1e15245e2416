package service

import (
	"fmt"
	"strings"
	"time"
)

const (
	dateLayout  = "2006-01-02"
	clockLayout = "15:04"
)

// parseDate 解析课次日期，返回当天 00:00 (UTC)
// 接受 YYYY-MM-DD 或 RFC3339（仅取其日历日期）
func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(dateLayout, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
}

// parseClock 将 "HH:MM" 转为自零点起的分钟数
func parseClock(s string) (int, error) {
	t, err := time.Parse(clockLayout, strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("%w: 无法解析时间 %q", ErrInvalidRange, s)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// parseRange 解析并校验时间段，要求 start < end（课次不跨零点）
func parseRange(start, end string) (int, int, error) {
	s, err := parseClock(start)
	if err != nil {
		return 0, 0, err
	}
	e, err := parseClock(end)
	if err != nil {
		return 0, 0, err
	}
	if e <= s {
		return 0, 0, fmt.Errorf("%w: 结束时间 %s 不晚于开始时间 %s", ErrInvalidRange, end, start)
	}
	return s, e, nil
}

// dayWindow 返回覆盖 date 当天的闭区间 [startOfDay, endOfDay]
func dayWindow(date time.Time) (time.Time, time.Time) {
	start := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	return start, start.Add(24*time.Hour - time.Nanosecond)
}

// overlaps 半开区间 [s1,e1) 与 [s2,e2) 是否相交，端点相接不算冲突
func overlaps(s1, e1, s2, e2 int) bool {
	return s1 < e2 && s2 < e1
}

func sameDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month() && a.Day() == b.Day()
}
