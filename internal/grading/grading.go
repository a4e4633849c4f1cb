// Package grading 成绩计算：等级划分、百分比、班内排名。
// 纯函数，不依赖存储。
package grading

import (
	"math"
	"sort"
)

// band 等级分档（下界含）
type band struct {
	min   float64
	grade string
}

// 自上而下匹配，首个满足的分档生效
var bands = []band{
	{80, "A+"},
	{70, "A"},
	{60, "A-"},
	{50, "B"},
	{40, "C"},
	{33, "D"},
}

// GradeFail 不及格等级
const GradeFail = "F"

// Grade 按百分比返回等级
func Grade(percentage float64) string {
	for _, b := range bands {
		if percentage >= b.min {
			return b.grade
		}
	}
	return GradeFail
}

// GradeFor 按单次考试的得分/满分返回等级；满分为 0 时为 F
func GradeFor(obtained, total float64) string {
	if total <= 0 {
		return GradeFail
	}
	return Grade(obtained / total * 100)
}

// Percentage 得分百分比，保留两位小数；满分为 0 时返回 0
func Percentage(obtained, total float64) float64 {
	if total <= 0 {
		return 0
	}
	return Round(obtained/total*100, 2)
}

// Round 四舍五入到 places 位小数
func Round(v float64, places int) float64 {
	p := math.Pow10(places)
	return math.Round(v*p) / p
}

// Entry 单条成绩（学生 → 得分）
type Entry struct {
	StudentID string
	Obtained  float64
}

// hundredths 分数按 0.01 分取整（成绩列为 NUMERIC(6,2)）
func hundredths(v float64) int64 {
	return int64(math.Round(v * 100))
}

// Sum 汇总得分，按 0.01 分整数累加，结果与相加顺序无关
func Sum(values ...float64) float64 {
	var acc int64
	for _, v := range values {
		acc += hundredths(v)
	}
	return float64(acc) / 100
}

// SumByStudent 按学生汇总总分，累加方式同 Sum
func SumByStudent(entries []Entry) map[string]float64 {
	acc := make(map[string]int64, len(entries))
	for _, e := range entries {
		acc[e.StudentID] += hundredths(e.Obtained)
	}
	totals := make(map[string]float64, len(acc))
	for id, v := range acc {
		totals[id] = float64(v) / 100
	}
	return totals
}

// Rank 竞争排名：1 + 总分严格高于 total 的学生数
// 同分同名次，下一名次顺延（180,180,150 → 1,1,3）；按 0.01 分比较
func Rank(totals map[string]float64, total float64) int {
	target := hundredths(total)
	rank := 1
	for _, t := range totals {
		if hundredths(t) > target {
			rank++
		}
	}
	return rank
}

// Standing 班内排名结果
type Standing struct {
	StudentID string
	Total     float64
	Rank      int
}

// Standings 全班排名，按总分降序；同分按学生 ID 升序保证输出稳定
func Standings(totals map[string]float64) []Standing {
	out := make([]Standing, 0, len(totals))
	for id, t := range totals {
		out = append(out, Standing{StudentID: id, Total: t})
	}
	sort.Slice(out, func(i, j int) bool {
		ti, tj := hundredths(out[i].Total), hundredths(out[j].Total)
		if ti != tj {
			return ti > tj
		}
		return out[i].StudentID < out[j].StudentID
	})
	for i := range out {
		if i > 0 && hundredths(out[i].Total) == hundredths(out[i-1].Total) {
			out[i].Rank = out[i-1].Rank
		} else {
			out[i].Rank = i + 1
		}
	}
	return out
}
