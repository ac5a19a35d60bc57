// Package flow runs declared prompt flows against a generative model and
// validates what comes back.
package flow

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/bytedance/sonic"
	log "github.com/sirupsen/logrus"
	"github.com/valyala/fasttemplate"

	"prism-board/schema"
)

// ErrFailed is the only error a caller sees when a model call goes wrong.
// The underlying cause is logged.
var ErrFailed = errors.New("flow failed")

// Request is a single model invocation.
type Request struct {
	Flow   string
	Model  string
	Prompt string
	Output schema.Shape
	Safety []SafetySetting
}

// Model produces the raw JSON text answering a request.
type Model interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// ModelFunc adapts a function to Model.
type ModelFunc func(ctx context.Context, req Request) (string, error)

func (f ModelFunc) Generate(ctx context.Context, req Request) (string, error) { return f(ctx, req) }

// checker is implemented by outputs with rules the output shape cannot
// express. A failed check is treated like any other bad model output.
type checker interface {
	Check() error
}

// Flow binds a definition to typed input and output.
type Flow[In, Out any] struct {
	def   Definition
	tpl   *fasttemplate.Template
	model Model
	log   *log.Logger
}

// New prepares a flow. Every placeholder in the prompt must name an input
// field.
func New[In, Out any](def Definition, model Model, logger *log.Logger) (*Flow[In, Out], error) {
	if err := def.Check(); err != nil {
		return nil, err
	}
	tpl, err := fasttemplate.NewTemplate(def.Prompt, "{{{", "}}}")
	if err != nil {
		return nil, fmt.Errorf("flow %s: parse prompt: %w", def.Name, err)
	}
	known := make(map[string]bool, len(def.Input.Fields))
	for _, f := range def.Input.Fields {
		known[f.Name] = true
	}
	var unknown error
	tpl.ExecuteFunc(io.Discard, func(w io.Writer, tag string) (int, error) {
		if !known[strings.TrimSpace(tag)] && unknown == nil {
			unknown = fmt.Errorf("flow %s: prompt references unknown field %q", def.Name, tag)
		}
		return 0, nil
	})
	if unknown != nil {
		return nil, unknown
	}
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Flow[In, Out]{def: def, tpl: tpl, model: model, log: logger}, nil
}

// Name returns the declared flow name.
func (f *Flow[In, Out]) Name() string { return f.def.Name }

// Render interpolates in into the prompt template.
func (f *Flow[In, Out]) Render(in In) (string, error) {
	vars, err := f.encodeInput(in)
	if err != nil {
		return "", err
	}
	return f.render(vars)
}

// Run renders the prompt, calls the model once and returns the decoded
// output. Input that does not match the input shape is reported as is;
// everything after the model call collapses into ErrFailed.
func (f *Flow[In, Out]) Run(ctx context.Context, in In) (Out, error) {
	var out Out
	vars, err := f.encodeInput(in)
	if err != nil {
		return out, err
	}
	prompt, err := f.render(vars)
	if err != nil {
		return out, err
	}

	entry := f.log.WithField("flow", f.def.Name)
	text, err := f.model.Generate(ctx, Request{
		Flow:   f.def.Name,
		Model:  f.def.Model,
		Prompt: prompt,
		Output: f.def.Output,
		Safety: f.def.Safety,
	})
	if err != nil {
		entry.WithError(err).Error("model call failed")
		return out, ErrFailed
	}

	text = stripFence(text)
	var raw any
	if err := sonic.ConfigStd.UnmarshalFromString(text, &raw); err != nil {
		entry.WithError(err).Error("model returned malformed json")
		return out, ErrFailed
	}
	if err := f.def.Output.Validate(raw); err != nil {
		entry.WithError(err).Error("model output rejected")
		return out, ErrFailed
	}
	if err := sonic.ConfigStd.UnmarshalFromString(text, &out); err != nil {
		entry.WithError(err).Error("decode model output")
		return out, ErrFailed
	}
	if c, ok := any(&out).(checker); ok {
		if err := c.Check(); err != nil {
			entry.WithError(err).Error("model output rejected")
			return out, ErrFailed
		}
	}
	entry.Debug("flow completed")
	return out, nil
}

func (f *Flow[In, Out]) encodeInput(in In) (map[string]any, error) {
	data, err := sonic.ConfigStd.Marshal(in)
	if err != nil {
		return nil, fmt.Errorf("flow %s: encode input: %w", f.def.Name, err)
	}
	var vars map[string]any
	if err := sonic.ConfigStd.Unmarshal(data, &vars); err != nil {
		return nil, fmt.Errorf("flow %s: encode input: %w", f.def.Name, err)
	}
	if err := f.def.Input.Validate(vars); err != nil {
		return nil, fmt.Errorf("flow %s: invalid input: %w", f.def.Name, err)
	}
	return vars, nil
}

func (f *Flow[In, Out]) render(vars map[string]any) (string, error) {
	var b strings.Builder
	_, err := f.tpl.ExecuteFunc(&b, func(w io.Writer, tag string) (int, error) {
		v := vars[strings.TrimSpace(tag)]
		if s, ok := v.(string); ok {
			return w.Write([]byte(s))
		}
		data, err := sonic.ConfigStd.Marshal(v)
		if err != nil {
			return 0, err
		}
		return w.Write(data)
	})
	if err != nil {
		return "", fmt.Errorf("flow %s: render prompt: %w", f.def.Name, err)
	}
	return b.String(), nil
}

func stripFence(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}
