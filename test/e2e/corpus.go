package e2e

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// KBDocument is one document in the E2E knowledge base. Content is a single
// line so that after extraction and chunking the document is exactly one chunk
// whose text equals Content, letting question cases assert exact retrieval.
type KBDocument struct {
	Name    string
	Content string
	Roles   []string
}

// QuestionCase is a question and the document expected at rank 1 of the
// retrieval trace. Question equals the target document's content, which the
// deterministic mock embedder scores at exactly 1.0.
type QuestionCase struct {
	Question       string
	ExpectedSource string
	Role           string
	Description    string
}

// Corpus holds the knowledge base documents and question cases.
type Corpus struct {
	Documents []KBDocument
	Cases     []QuestionCase
}

var policyLines = []string{
	"Returns are accepted within 30 days of delivery with the original receipt.",
	"Refunds are issued to the original payment method within five business days.",
	"Exchanges require the item to be unused and in its original packaging.",
	"Standard shipping takes three to seven business days within the country.",
	"Express shipping orders placed before noon are dispatched the same day.",
	"International orders may incur customs duties payable by the recipient.",
	"Warranty claims must include the serial number and proof of purchase.",
	"Damaged items must be reported within 48 hours of delivery with photos.",
	"Gift cards are non-refundable and expire two years after activation.",
	"Order cancellations are free of charge until the order ships.",
	"Customer support is available on weekdays from nine to six local time.",
	"Escalations to a supervisor require a ticket older than 24 hours.",
	"Price adjustments are honored within seven days of a published markdown.",
	"Loyalty points accrue at one point per currency unit spent and never expire.",
	"Subscription plans renew automatically unless cancelled 14 days in advance.",
	"Bulk orders above fifty units qualify for the wholesale discount tier.",
	"Defective units under warranty are replaced rather than repaired.",
	"Store credit from returns is applied automatically at the next checkout.",
	"Backordered items ship separately at no additional shipping cost.",
	"Out-of-stock notifications are sent when an item is available again.",
}

var restrictedDocs = []KBDocument{
	{
		Name:    "payroll-policy",
		Content: "Payroll corrections must be submitted to HR before the 20th of each month.",
		Roles:   []string{"hr"},
	},
	{
		Name:    "deploy-runbook",
		Content: "Production deploys are frozen on Fridays and require two approvals.",
		Roles:   []string{"engineering"},
	},
}

// BuildCorpus returns the knowledge base corpus: one file per policy line,
// cycling through the supported extensions, plus two role-restricted documents.
func BuildCorpus() *Corpus {
	docs := make([]KBDocument, 0, len(policyLines)+len(restrictedDocs))
	for i, line := range policyLines {
		ext := SupportedFileExtensions[i%len(SupportedFileExtensions)]
		docs = append(docs, KBDocument{
			Name:    fmt.Sprintf("policy-%02d%s", i+1, ext),
			Content: line,
		})
	}
	for _, d := range restrictedDocs {
		d.Name = d.Name + ".md"
		docs = append(docs, d)
	}

	cases := make([]QuestionCase, 0, len(docs))
	for _, d := range docs {
		role := ""
		if len(d.Roles) > 0 {
			role = d.Roles[0]
		}
		cases = append(cases, QuestionCase{
			Question:       d.Content,
			ExpectedSource: d.Name,
			Role:           role,
			Description:    fmt.Sprintf("question matching %s retrieves it at rank 1", d.Name),
		})
	}
	return &Corpus{Documents: docs, Cases: cases}
}

// WriteKnowledgeBase writes the corpus documents and a rich-form YAML manifest
// into dir and returns the manifest path.
func (c *Corpus) WriteKnowledgeBase(dir string) (string, error) {
	var manifest strings.Builder
	manifest.WriteString("documents:\n")
	for _, d := range c.Documents {
		content, err := WriteMinimalFile(filepath.Ext(d.Name), d.Content)
		if err != nil {
			return "", fmt.Errorf("build %s: %w", d.Name, err)
		}
		if err := os.WriteFile(filepath.Join(dir, d.Name), content, 0644); err != nil {
			return "", fmt.Errorf("write %s: %w", d.Name, err)
		}
		fmt.Fprintf(&manifest, "  - path: %s\n", d.Name)
		if len(d.Roles) > 0 {
			fmt.Fprintf(&manifest, "    allowed_roles: [%s]\n", strings.Join(d.Roles, ", "))
		}
	}
	manifestPath := filepath.Join(dir, "docs.yaml")
	if err := os.WriteFile(manifestPath, []byte(manifest.String()), 0644); err != nil {
		return "", fmt.Errorf("write manifest: %w", err)
	}
	return manifestPath, nil
}
