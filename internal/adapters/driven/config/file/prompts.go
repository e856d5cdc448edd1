package file

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

// Ensure PromptStore implements the interface.
var _ driven.PromptStore = (*PromptStore)(nil)

// PromptStore serves LLM prompt templates. Built-in defaults can be
// overridden per name by a YAML file mapping prompt names to templates:
//
//	qa: |
//	  Answer using only this context:
//	  {{context}}
//	  ...
//
// The file is read lazily on first Load and again after Reload.
type PromptStore struct {
	mu     sync.RWMutex
	path   string
	cache  map[string]string
	loaded bool
}

// defaultPrompts contains the built-in templates.
//
//nolint:lll // Prompt content is intentionally long and should not be wrapped.
var defaultPrompts = map[string]string{
	driven.PromptSystem: `You are an AI assistant that answers questions using the documents provided to you. Be accurate and informative. If the documents do not contain the answer, say that you do not have that information.`,

	driven.PromptQA: `Use the following context to answer the user's question accurately.

Context from documents:
{{context}}

Conversation history:
{{chat_history}}

Question: {{question}}

Instructions:
1. Answer based on the context above
2. If the information is not in the context, say that you do not have it
3. Give a clear answer that is easy to understand
4. Reference the source documents where relevant

Answer:`,

	driven.PromptCompress: `Given the following question and context, extract any part of the context *AS IS* that is relevant to answer the question. If none of the context is relevant return NO_OUTPUT.

Remember, *DO NOT* edit the extracted parts of the context.

Question: {{question}}
Context:
>>>
{{context}}
>>>
Extracted relevant parts:`,
}

// DefaultPrompts returns a copy of the built-in templates.
func DefaultPrompts() map[string]string {
	out := make(map[string]string, len(defaultPrompts))
	for k, v := range defaultPrompts {
		out[k] = v
	}
	return out
}

// NewPromptStore creates a prompt store. An empty path serves the
// built-in defaults only. A path that does not exist is not an error.
//
// The constructor does not perform any I/O.
func NewPromptStore(path string) *PromptStore {
	return &PromptStore{
		path:  path,
		cache: make(map[string]string),
	}
}

// Path returns the overrides file path, or "" when none is configured.
func (s *PromptStore) Path() string {
	return s.path
}

// Load returns the template for name. A user override wins over the default.
func (s *PromptStore) Load(name string) (string, error) {
	if err := s.ensureLoaded(); err != nil {
		return "", err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if prompt, ok := s.cache[name]; ok {
		return prompt, nil
	}
	if prompt, ok := defaultPrompts[name]; ok {
		return prompt, nil
	}
	return "", fmt.Errorf("unknown prompt %q", name)
}

// Names returns every prompt name that can be loaded, sorted. A prompts
// file that cannot be read or parsed is an error.
func (s *PromptStore) Names() ([]string, error) {
	if err := s.ensureLoaded(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]bool)
	for name := range defaultPrompts {
		seen[name] = true
	}
	for name := range s.cache {
		seen[name] = true
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Reload clears the cache, forcing the overrides file to be read again.
func (s *PromptStore) Reload() {
	s.mu.Lock()
	s.cache = make(map[string]string)
	s.loaded = false
	s.mu.Unlock()
}

// ensureLoaded reads the overrides file once. A parse error is returned on
// every call until Reload so that a broken file is never silently ignored.
func (s *PromptStore) ensureLoaded() error {
	s.mu.RLock()
	loaded := s.loaded
	s.mu.RUnlock()
	if loaded || s.path == "" {
		return nil
	}

	overrides, err := readOverrides(s.path)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.loaded {
		s.cache = overrides
		s.loaded = true
	}
	return nil
}

func readOverrides(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read prompts file: %w", err)
	}

	var raw map[string]string
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse prompts file %s: %w", path, err)
	}

	overrides := make(map[string]string, len(raw))
	for name, prompt := range raw {
		if prompt = strings.TrimSpace(prompt); prompt != "" {
			overrides[name] = prompt
		}
	}
	return overrides, nil
}
