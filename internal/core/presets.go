package core

import "github.com/eleven-am/noderun/internal/domain"

// CreateSimpleNode runs fn once with no timeout.
func (r *Runner) CreateSimpleNode(name string, fn NodeFunc) (Node, error) {
	retry := domain.DefaultRetryConfig()
	retry.MaxAttempts = 1
	return r.CreateNode(domain.NodeConfig{Name: name, Retry: &retry}, fn)
}

func (r *Runner) CreateLLMNode(name string, fn NodeFunc) (Node, error) {
	retry := domain.LLMRetryConfig()
	return r.CreateNode(domain.NodeConfig{Name: name, Retry: &retry}, fn)
}

func (r *Runner) CreateToolNode(name string, fn NodeFunc) (Node, error) {
	retry := domain.ToolRetryConfig()
	return r.CreateNode(domain.NodeConfig{Name: name, Retry: &retry}, fn)
}

func (r *Runner) CreateValidationNode(name string, fn NodeFunc) (Node, error) {
	retry := domain.ValidationRetryConfig()
	return r.CreateNode(domain.NodeConfig{Name: name, Retry: &retry}, fn)
}

// CreatePresetNode builds a node from a named retry preset. An empty preset
// selects the default retry policy.
func (r *Runner) CreatePresetNode(name string, preset domain.Preset, fn NodeFunc) (Node, error) {
	retry, err := domain.RetryConfigForPreset(preset)
	if err != nil {
		return nil, err
	}
	return r.CreateNode(domain.NodeConfig{Name: name, Retry: &retry}, fn)
}
