package report

import "sort"

// Signature algorithms in ascending priority.
const (
	AlgorithmHash                  = "hash"
	AlgorithmLocation              = "location"
	AlgorithmScopeOffset           = "scope_offset"
	AlgorithmScopeOffsetCompressed = "scope_offset_compressed"
	AlgorithmRuleValue             = "rule_value"
)

var algorithmPriority = map[string]int{
	AlgorithmHash:                  1,
	AlgorithmLocation:              2,
	AlgorithmScopeOffset:           3,
	AlgorithmScopeOffsetCompressed: 4,
	AlgorithmRuleValue:             5,
}

// Signature is a tracking signature emitted by an analyzer. Signatures survive
// code movement better than line based location fingerprints.
type Signature struct {
	Algorithm string `json:"algorithm"`
	Value     string `json:"value"`
}

// Priority returns the algorithm priority, 0 for unknown algorithms.
func (s Signature) Priority() int {
	return algorithmPriority[s.Algorithm]
}

func (s Signature) Valid() bool {
	_, ok := algorithmPriority[s.Algorithm]
	return ok && s.Value != ""
}

// SHA is the SHA1 hex digest of the signature value.
func (s Signature) SHA() string {
	return sha1Hex(s.Value)
}

// byPriorityDesc returns the valid signatures, highest priority first.
func byPriorityDesc(signatures []Signature) []Signature {
	out := make([]Signature, 0, len(signatures))
	for _, s := range signatures {
		if s.Valid() {
			out = append(out, s)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Priority() > out[j].Priority()
	})
	return out
}
