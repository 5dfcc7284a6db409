package service

import (
	"time"
	"yks_coach_backend/internal/model"
)

type StreakUpdate struct {
	Streak     int
	ActiveDate string
	Changed    bool
}

// AdvanceStreak 按自然日推进连续打卡天数：
// 同一天不变，昨天则+1，从未活跃或间隔两天及以上重置为1。
// last 和 today 必须已经处于同一时区。
func AdvanceStreak(last time.Time, hasLast bool, today time.Time, streak int) StreakUpdate {
	todayKey := today.Format(model.DateLayout)
	if !hasLast {
		return StreakUpdate{Streak: 1, ActiveDate: todayKey, Changed: true}
	}

	switch daysBetween(last, today) {
	case 0:
		return StreakUpdate{Streak: streak, ActiveDate: todayKey, Changed: false}
	case 1:
		return StreakUpdate{Streak: streak + 1, ActiveDate: todayKey, Changed: true}
	default:
		return StreakUpdate{Streak: 1, ActiveDate: todayKey, Changed: true}
	}
}

// daysBetween 计算两个日历日之间相差的天数，不受夏令时影响
func daysBetween(from, to time.Time) int {
	a := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	b := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.UTC)
	return int(b.Sub(a).Hours() / 24)
}
