package prompt

import (
	_ "embed"
	"strings"
)

var (
	//go:embed template/classifier.txt
	classifierRaw string

	//go:embed template/knowledge.txt
	knowledgeRaw string
)

// PromptSet holds loaded prompt content.
type PromptSet struct {
	Classifier string
	Knowledge  string
}

// LoadPromptSet returns a PromptSet with trimmed prompt strings.
func LoadPromptSet() PromptSet {
	return PromptSet{
		Classifier: strings.TrimSpace(classifierRaw),
		Knowledge:  strings.TrimSpace(knowledgeRaw),
	}
}
