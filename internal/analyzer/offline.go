package analyzer

import (
	"github.com/nextlevelbuilder/vibetorch/pkg/dom/memdom"
	"github.com/nextlevelbuilder/vibetorch/pkg/protocol"
)

// Select describes every element of doc matching a CSS selector, in
// document order.
func (a *Analyzer) Select(doc *memdom.Document, selector string) ([]protocol.ElementInfo, error) {
	els, err := doc.Query(selector)
	if err != nil {
		return nil, err
	}
	out := make([]protocol.ElementInfo, 0, len(els))
	for _, el := range els {
		out = append(out, a.Analyze(el))
	}
	return out, nil
}
