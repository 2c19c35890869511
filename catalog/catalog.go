package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
)

// OtherName is the name of the fallback category.
const OtherName = "other"

const separatorWidth = 60

// ErrInvalidModelList is returned when a model list cannot be decoded.
var ErrInvalidModelList = errors.New("invalid model list")

// Rule assigns identifiers starting with any of Prefixes to a category.
type Rule struct {
	Name     string
	Title    string
	Prefixes []string
}

// Match reports whether id starts with one of the rule's prefixes.
func (r Rule) Match(id string) bool {
	for _, p := range r.Prefixes {
		if strings.HasPrefix(id, p) {
			return true
		}
	}
	return false
}

// Category is one bucket of a classification.
type Category struct {
	Name    string
	Title   string
	Members []string
}

// DefaultRules returns the model families reported by the classify command.
func DefaultRules() []Rule {
	return []Rule{
		{
			Name:     "openai",
			Title:    "OpenAI series (gpt/o1/o3/o4/chatgpt/dall-e)",
			Prefixes: []string{"gpt-", "o1", "o3", "o4", "chatgpt-", "dall-e", "net-o1"},
		},
		{Name: "claude", Title: "Claude series (claude-x)", Prefixes: []string{"claude-"}},
		{Name: "gemini", Title: "Gemini series (gemini-x)", Prefixes: []string{"gemini-"}},
	}
}

// Classify partitions ids by rules. The result has one category per rule, in rule order,
// followed by the "other" category.
func Classify(ids []string, rules []Rule) []Category {
	out := make([]Category, len(rules)+1)
	for i, r := range rules {
		out[i] = Category{Name: r.Name, Title: r.Title, Members: []string{}}
	}
	other := len(rules)
	out[other] = Category{Name: OtherName, Title: "Other models", Members: []string{}}

	for _, id := range ids {
		idx := other
		for i, r := range rules {
			if r.Match(id) {
				idx = i
				break
			}
		}
		out[idx].Members = append(out[idx].Members, id)
	}

	for i := range out {
		sort.Strings(out[i].Members)
	}
	return out
}

type modelList struct {
	Data []struct {
		ID *string `json:"id"`
	} `json:"data"`
}

// LoadModelList reads the ids from a {"data":[{"id":...}]} document.
func LoadModelList(r io.Reader) ([]string, error) {
	var list modelList
	if err := json.NewDecoder(r).Decode(&list); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidModelList, err)
	}
	if list.Data == nil {
		return nil, fmt.Errorf("%w: missing data array", ErrInvalidModelList)
	}

	ids := make([]string, 0, len(list.Data))
	for i, m := range list.Data {
		if m.ID == nil {
			return nil, fmt.Errorf("%w: data[%d] has no id", ErrInvalidModelList, i)
		}
		ids = append(ids, *m.ID)
	}
	return ids, nil
}

// WriteReport renders categories as separator-framed sections with member counts.
func WriteReport(w io.Writer, categories []Category) error {
	sep := strings.Repeat("=", separatorWidth)
	var b strings.Builder
	for _, c := range categories {
		fmt.Fprintf(&b, "\n%s\n %s (%d)\n%s\n", sep, c.Title, len(c.Members), sep)
		for _, m := range c.Members {
			b.WriteString("  ")
			b.WriteString(m)
			b.WriteByte('\n')
		}
	}
	_, err := io.WriteString(w, b.String())
	return err
}
