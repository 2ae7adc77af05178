package triage

import (
	"strings"
)

// Label 表示联系消息的分类标签。
type Label string

const (
	General     Label = "general"
	Sales       Label = "sales"
	Support     Label = "support"
	Partnership Label = "partnership"
	Feedback    Label = "feedback"
	Spam        Label = "spam"
)

// Labels 按平局优先顺序列出全部标签。
var Labels = []Label{Spam, Support, Sales, Partnership, Feedback, General}

// ParseLabel 将原始字符串规范化为已知标签。
func ParseLabel(raw string) (Label, bool) {
	normalized := Label(strings.ToLower(strings.TrimSpace(raw)))
	for _, label := range Labels {
		if label == normalized {
			return label, true
		}
	}
	return "", false
}

// Decision 给出分类结果与命中得分。
type Decision struct {
	Category Label
	Score    int
}

var keywordBuckets = map[Label][]string{
	Sales: {
		"pricing", "price", "quote", "quotation", "buy", "purchase", "demo", "cost", "plan",
		"subscription", "trial", "invoice", "license", "enterprise", "报价", "价格", "购买", "试用",
	},
	Support: {
		"error", "bug", "broken", "help", "issue", "problem", "can't", "cannot", "doesn't work",
		"not working", "crash", "login", "password", "refund", "support", "故障", "无法", "报错", "帮助",
	},
	Partnership: {
		"partner", "partnership", "collaborat", "sponsor", "affiliate", "integration", "reseller",
		"co-marketing", "joint venture", "合作", "赞助", "渠道",
	},
	Feedback: {
		"feedback", "suggest", "idea", "love", "awesome", "great", "thanks", "thank you", "improve",
		"feature request", "建议", "反馈", "喜欢", "谢谢",
	},
	Spam: {
		"viagra", "casino", "crypto giveaway", "backlinks", "seo services", "click here", "free money",
		"you have won", "winner", "guaranteed ranking", "forex signals", "loan offer",
	},
}

// Analyze 基于关键词对消息进行启发式分类。
func Analyze(name, message string) Decision {
	text := strings.ToLower(strings.TrimSpace(message))
	if text == "" {
		return Decision{Category: General}
	}

	scores := make(map[Label]int)
	for label, keywords := range keywordBuckets {
		for _, word := range keywords {
			if strings.Contains(text, word) {
				scores[label] += 3
			}
		}
	}

	// Link-heavy messages are the most common spam shape on public forms.
	links := strings.Count(text, "http://") + strings.Count(text, "https://")
	if links >= 3 {
		scores[Spam] += links * 2
	}
	if strings.Contains(strings.ToLower(name), "http") {
		scores[Spam] += 6
	}
	if isShouting(message) {
		scores[Spam] += 2
	}

	best := General
	bestScore := 0
	for _, label := range Labels {
		if scores[label] > bestScore {
			best = label
			bestScore = scores[label]
		}
	}
	return Decision{Category: best, Score: bestScore}
}

func isShouting(text string) bool {
	letters, upper := 0, 0
	for _, r := range text {
		if r >= 'a' && r <= 'z' {
			letters++
		} else if r >= 'A' && r <= 'Z' {
			letters++
			upper++
		}
	}
	return letters >= 20 && upper*10 >= letters*8
}
