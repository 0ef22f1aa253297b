package faq

import (
	"os"
	"strings"

	"recruitbot/app/config"

	_ "embed"

	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"
	"github.com/samber/do"
	"github.com/samber/oops"
	"gopkg.in/yaml.v3"
)

//go:embed faq.yaml
var defaultTable []byte

const (
	ModeFuzzy   = "fuzzy"
	ModeKeyword = "keyword"

	DefaultThreshold = 0.4

	NoInfoReply  = "申し訳ありませんが、その質問にはお答えできる情報がありません。詳しくは採用担当までお問い合わせください。"
	RefusalReply = "申し訳ありませんが、採用活動に関するご質問以外にはお答えできません。"
)

// Words that make an unanswered question count as recruiting related.
var domainKeywords = []string{
	"採用", "選考", "面接", "応募", "エントリー", "内定", "インターン", "説明会",
	"給与", "給料", "初任給", "年収", "福利厚生", "勤務", "配属", "研修", "休日", "残業", "社風",
	"recruit", "interview", "hiring", "job", "salary", "internship", "application",
}

type Entry struct {
	Question string   `yaml:"question"`
	Answer   string   `yaml:"answer"`
	Keywords []string `yaml:"keywords"`
}

type Service struct {
	entries   []Entry
	mode      string
	threshold float64
	metric    *metrics.Levenshtein
}

func New(di *do.Injector) (*Service, error) {
	cfg := do.MustInvoke[*config.Config](di)

	data := defaultTable
	if cfg.FAQ.File != "" {
		fileData, err := os.ReadFile(cfg.FAQ.File)
		if err != nil {
			return nil, oops.In("faq").With("path", cfg.FAQ.File).Wrapf(err, "failed to read FAQ table")
		}
		data = fileData
	}

	entries, err := ParseTable(data)
	if err != nil {
		return nil, err
	}

	return NewService(entries, cfg.FAQ.Mode, cfg.FAQ.Threshold), nil
}

func NewService(entries []Entry, mode string, threshold float64) *Service {
	if mode == "" {
		mode = ModeFuzzy
	}
	if threshold <= 0 {
		threshold = DefaultThreshold
	}

	metric := metrics.NewLevenshtein()
	metric.CaseSensitive = false

	return &Service{
		entries:   entries,
		mode:      mode,
		threshold: threshold,
		metric:    metric,
	}
}

func ParseTable(data []byte) ([]Entry, error) {
	var entries []Entry
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, oops.In("faq").Wrapf(err, "failed to parse FAQ table")
	}

	return entries, nil
}

func DefaultEntries() []Entry {
	entries, _ := ParseTable(defaultTable)
	return entries
}

// Search returns the stored answer for question, or false when nothing
// matches. Fuzzy mode falls back to keyword containment.
func (s *Service) Search(question string) (string, bool) {
	question = normalize(question)
	if question == "" {
		return "", false
	}

	if s.mode == ModeFuzzy {
		if answer, ok := s.searchFuzzy(question); ok {
			return answer, true
		}
	}

	return s.searchKeyword(question)
}

// Answer always produces a reply: the match, a pointer to the recruiter for
// recruiting questions without an entry, or a refusal.
func (s *Service) Answer(question string) string {
	if answer, ok := s.Search(question); ok {
		return answer
	}

	if IsRecruitingRelated(question) {
		return NoInfoReply
	}

	return RefusalReply
}

func (s *Service) searchFuzzy(question string) (string, bool) {
	bestScore := 0.0
	bestAnswer := ""

	for _, entry := range s.entries {
		score := strutil.Similarity(question, normalize(entry.Question), s.metric)
		if score > bestScore {
			bestScore = score
			bestAnswer = entry.Answer
		}
	}

	if bestScore < s.threshold {
		return "", false
	}

	return bestAnswer, true
}

func (s *Service) searchKeyword(question string) (string, bool) {
	for _, entry := range s.entries {
		for _, keyword := range entry.Keywords {
			if keyword != "" && strings.Contains(question, strings.ToLower(keyword)) {
				return entry.Answer, true
			}
		}
	}

	return "", false
}

func IsRecruitingRelated(text string) bool {
	text = strings.ToLower(text)

	for _, keyword := range domainKeywords {
		if strings.Contains(text, keyword) {
			return true
		}
	}

	return false
}

func normalize(text string) string {
	text = strings.ToLower(strings.TrimSpace(text))
	return strings.TrimRight(text, "?？。!！ ")
}
