package llmgateway

import (
	"encoding/json"
	"fmt"
	"io"
)

// contentChunkSize and argChunkSize bound how large a single streamed delta
// is allowed to be (spec §4.C "content chunks of at most 100 characters",
// "argument-fragment chunks of at most 200 characters").
const (
	contentChunkSize = 100
	argChunkSize     = 200
)

// sseWriter emits one synthesized streamed response for a provider backend
// that only ever returns a complete, non-streamed result (Ollama, Anthropic,
// OpenAI). Gemini is the exception: its own SSE body is passed through raw
// instead of going through this emitter (spec §4.C "streaming passthrough").
type sseWriter struct {
	w     io.Writer
	flush func()
}

func newSSEWriter(w io.Writer, flush func()) *sseWriter {
	return &sseWriter{w: w, flush: flush}
}

func (s *sseWriter) writeChunk(chunk ChatCompletionChunk) error {
	data, err := json.Marshal(chunk)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", data); err != nil {
		return err
	}
	if s.flush != nil {
		s.flush()
	}
	return nil
}

// WriteSynthesized breaks a complete ChatCompletionResponse into the
// ordered chunk sequence a streaming client expects: a role chunk, content
// chunks, per-tool-call opening and argument-fragment chunks, a terminal
// chunk carrying finish_reason and usage, and the closing [DONE] sentinel.
func (s *sseWriter) WriteSynthesized(resp *ChatCompletionResponse) error {
	if len(resp.Choices) == 0 {
		return s.writeDone()
	}
	choice := resp.Choices[0]
	msg := choice.Message
	base := ChatCompletionChunk{ID: resp.ID, Object: "chat.completion.chunk", Created: resp.Created, Model: resp.Model}

	role := base
	role.Choices = []Choice{{Index: 0, Delta: &Delta{Role: "assistant"}}}
	if err := s.writeChunk(role); err != nil {
		return err
	}

	if msg != nil {
		text := msg.TextContent()
		for i := 0; i < len(text); i += contentChunkSize {
			end := i + contentChunkSize
			if end > len(text) {
				end = len(text)
			}
			c := base
			c.Choices = []Choice{{Index: 0, Delta: &Delta{Content: text[i:end]}}}
			if err := s.writeChunk(c); err != nil {
				return err
			}
		}

		for _, tc := range msg.ToolCalls {
			opening := base
			opening.Choices = []Choice{{Index: 0, Delta: &Delta{ToolCalls: []ToolCall{{
				Index: tc.Index,
				ID:    tc.ID,
				Type:  tc.Type,
				Function: ToolCallFunc{
					Name: tc.Function.Name,
				},
			}}}}}
			if err := s.writeChunk(opening); err != nil {
				return err
			}

			args := tc.Function.Arguments
			for i := 0; i < len(args); i += argChunkSize {
				end := i + argChunkSize
				if end > len(args) {
					end = len(args)
				}
				frag := base
				frag.Choices = []Choice{{Index: 0, Delta: &Delta{ToolCalls: []ToolCall{{
					Index:    tc.Index,
					Function: ToolCallFunc{Arguments: args[i:end]},
				}}}}}
				if err := s.writeChunk(frag); err != nil {
					return err
				}
			}
		}
	}

	terminal := base
	terminal.Choices = []Choice{{Index: 0, Delta: &Delta{}, FinishReason: choice.FinishReason}}
	terminal.Usage = resp.Usage
	if err := s.writeChunk(terminal); err != nil {
		return err
	}

	return s.writeDone()
}

func (s *sseWriter) writeDone() error {
	if _, err := fmt.Fprint(s.w, "data: [DONE]\n\n"); err != nil {
		return err
	}
	if s.flush != nil {
		s.flush()
	}
	return nil
}

// WriteError emits a synthetic error chunk used when a provider call fails
// mid-stream or after retries are exhausted (spec §4.C "a synthetic
// [LLM_ERROR] SSE chunk on persistent failure").
func (s *sseWriter) WriteError(err error) error {
	if _, werr := fmt.Fprintf(s.w, "data: [LLM_ERROR] %s\n\n", err.Error()); werr != nil {
		return werr
	}
	if s.flush != nil {
		s.flush()
	}
	return s.writeDone()
}
