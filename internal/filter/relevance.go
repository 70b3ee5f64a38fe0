package filter

import (
	"regexp"
	"strings"
)

// DefaultKeywords is the built-in bilingual vocabulary covering the AI
// topic: research terms, product names, and the companies behind them.
func DefaultKeywords() []string {
	return []string{
		"人工智能", "AI", "机器学习", "ML", "深度学习", "DL", "神经网络", "NN",
		"GPT", "ChatGPT", "大语言模型", "LLM", "生成式AI", "Generative AI",
		"OpenAI", "DeepMind", "Anthropic", "Claude", "Gemini", "Llama",
		"计算机视觉", "CV", "自然语言处理", "NLP", "强化学习", "RL",
		"语音识别", "图像生成", "DALL-E", "Midjourney", "Stable Diffusion",
		"多模态", "Multimodal", "AGI", "通用人工智能", "transformer", "注意力机制",
		"微调", "Fine-tuning", "提示工程", "Prompt Engineering", "RAG",
		"向量数据库", "Vector Database", "嵌入", "Embedding",
	}
}

// Classifier decides topical fit by keyword membership. ASCII terms match
// on word boundaries so a short keyword embedded in a longer word ("AI"
// in "maintain") does not count; terms containing non-ASCII runes match
// by substring, since \b is ASCII-only in RE2 and CJK text carries no
// word separators anyway.
type Classifier struct {
	pattern  *regexp.Regexp
	literals []string
}

// NewClassifier compiles the keyword vocabulary. An empty slice falls
// back to DefaultKeywords.
func NewClassifier(keywords []string) *Classifier {
	if len(keywords) == 0 {
		keywords = DefaultKeywords()
	}

	var bounded []string
	var literals []string
	for _, kw := range keywords {
		kw = strings.TrimSpace(kw)
		if kw == "" {
			continue
		}
		if isASCII(kw) {
			bounded = append(bounded, `\b`+regexp.QuoteMeta(kw)+`\b`)
		} else {
			literals = append(literals, strings.ToLower(kw))
		}
	}

	c := &Classifier{literals: literals}
	if len(bounded) > 0 {
		c.pattern = regexp.MustCompile(`(?i)` + strings.Join(bounded, "|"))
	}
	return c
}

// Relevant reports whether the text mentions any keyword.
func (c *Classifier) Relevant(text string) bool {
	if c.pattern != nil && c.pattern.MatchString(text) {
		return true
	}
	if len(c.literals) == 0 {
		return false
	}
	lowered := strings.ToLower(text)
	for _, lit := range c.literals {
		if strings.Contains(lowered, lit) {
			return true
		}
	}
	return false
}

// Count returns the total number of keyword occurrences in the text.
func (c *Classifier) Count(text string) int {
	total := 0
	if c.pattern != nil {
		total += len(c.pattern.FindAllStringIndex(text, -1))
	}
	if len(c.literals) > 0 {
		lowered := strings.ToLower(text)
		for _, lit := range c.literals {
			total += strings.Count(lowered, lit)
		}
	}
	return total
}

func isASCII(s string) bool {
	for _, r := range s {
		if r > 127 {
			return false
		}
	}
	return true
}
