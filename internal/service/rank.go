package service

// Tier 决定计划和挑战的难度
type Tier string

const (
	TierBeginner     Tier = "beginner"
	TierIntermediate Tier = "intermediate"
	TierAdvanced     Tier = "advanced"
	TierExpert       Tier = "expert"
	TierMaster       Tier = "master"
)

type rankBand struct {
	upper int // 不含上界；-1 表示没有上界
	label string
	tier  Tier
}

// 唯一的等级表，资料展示、计划难度、挑战难度都从这里读取
var rankBands = []rankBand{
	{upper: 150, label: "Çaylak", tier: TierBeginner},
	{upper: 500, label: "Çırak", tier: TierIntermediate},
	{upper: 1500, label: "Kalfa", tier: TierAdvanced},
	{upper: 3000, label: "Usta", tier: TierExpert},
	{upper: -1, label: "YKS LORDU", tier: TierMaster},
}

type RankInfo struct {
	Label    string  `json:"label"`
	Band     int     `json:"band"`
	Tier     Tier    `json:"tier"`
	Progress float64 `json:"progress"`
}

// Rank 根据经验值计算等级与当前区间内的进度。负数按0处理。
func Rank(xp int) RankInfo {
	if xp < 0 {
		xp = 0
	}
	lower := 0
	for i, b := range rankBands {
		if b.upper < 0 {
			return RankInfo{Label: b.label, Band: i, Tier: b.tier, Progress: 1.0}
		}
		if xp < b.upper {
			return RankInfo{
				Label:    b.label,
				Band:     i,
				Tier:     b.tier,
				Progress: float64(xp-lower) / float64(b.upper-lower),
			}
		}
		lower = b.upper
	}
	// unreachable: 最后一档没有上界
	last := rankBands[len(rankBands)-1]
	return RankInfo{Label: last.label, Band: len(rankBands) - 1, Tier: last.tier, Progress: 1.0}
}

// TierDescription 给提示词使用的难度描述
func TierDescription(t Tier) string {
	switch t {
	case TierBeginner:
		return "temel seviye, kısa ve kolay görevler"
	case TierIntermediate:
		return "orta seviye, konu tekrarı ağırlıklı"
	case TierAdvanced:
		return "ileri seviye, deneme ve soru çözümü ağırlıklı"
	case TierExpert:
		return "zor seviye, zaman baskılı deneme ve eksik kapatma"
	default:
		return "en zor seviye, tam deneme ve derece odaklı çalışma"
	}
}
