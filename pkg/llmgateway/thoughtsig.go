package llmgateway

import "sync"

// ThoughtSignatureCache is the §3 "Thought-signature cache": a global map
// keyed by tool-call id whose value is an opaque provider-issued token that
// must be echoed back on every subsequent request referencing that
// tool-call. Process-global and rebuilt on restart (spec §3 "Ownership").
type ThoughtSignatureCache struct {
	mu   sync.Mutex
	sigs map[string]string
}

// NewThoughtSignatureCache constructs an empty cache.
func NewThoughtSignatureCache() *ThoughtSignatureCache {
	return &ThoughtSignatureCache{sigs: make(map[string]string)}
}

// Put records the signature Gemini issued for a tool-call id.
func (c *ThoughtSignatureCache) Put(toolCallID, signature string) {
	if toolCallID == "" || signature == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sigs[toolCallID] = signature
}

// Get returns the cached signature for a tool-call id, if any (spec §8
// "Thought-sig round-trip").
func (c *ThoughtSignatureCache) Get(toolCallID string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	sig, ok := c.sigs[toolCallID]
	return sig, ok
}
