package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/manifoldco/promptui"
)

// RunWizard runs an interactive configuration wizard, saves the result to
// path and returns it.
func RunWizard(path string) (*Config, error) {
	fmt.Println("Welcome to airunner! Let's configure your service.")
	fmt.Println()

	cfg := DefaultConfig()

	// 1. Hardware.
	amxPrompt := promptui.Select{
		Label: "Run inference on a hardware accelerator (AMX/GPU)?",
		Items: []string{"no", "yes"},
	}
	_, amx, err := amxPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("accelerator selection: %w", err)
	}
	cfg.UseAMX = amx == "yes"

	// 2. Authentication.
	jwksPrompt := promptui.Prompt{
		Label:   "JWKS URI of your identity provider (leave blank to disable auth)",
		Default: "",
	}
	jwksURI, err := jwksPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("jwks uri: %w", err)
	}
	if jwksURI = strings.TrimSpace(jwksURI); jwksURI != "" {
		clientPrompt := promptui.Prompt{Label: "OIDC client ID"}
		clientID, err := clientPrompt.Run()
		if err != nil {
			return nil, fmt.Errorf("client id: %w", err)
		}
		cfg.Auth = []AuthProvider{{ClientID: strings.TrimSpace(clientID), JWKSURI: jwksURI}}
	}

	// 3. First documentary base.
	namePrompt := promptui.Prompt{
		Label:   "Name of the first documentary base (leave blank to skip)",
		Default: "",
	}
	name, err := namePrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("base name: %w", err)
	}
	if name = strings.TrimSpace(name); name != "" {
		base, err := promptBase(name)
		if err != nil {
			return nil, err
		}
		cfg.DocumentaryBases = append(cfg.DocumentaryBases, base)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("generated config is invalid: %w", err)
	}
	if err := cfg.Save(path); err != nil {
		return nil, fmt.Errorf("saving config: %w", err)
	}

	fmt.Printf("\nConfiguration saved to %s\n", path)
	return cfg, nil
}

func promptBase(name string) (DocumentaryBase, error) {
	pathPrompt := promptui.Prompt{
		Label:   "Persist path",
		Default: filepath.Join("data", "bases", name),
	}
	persistPath, err := pathPrompt.Run()
	if err != nil {
		return DocumentaryBase{}, fmt.Errorf("persist path: %w", err)
	}

	modelPrompt := promptui.Prompt{
		Label:   "Model (<backend>:<model>, backend one of huggingface, openai, ollama)",
		Default: "ollama:llama3",
		Validate: func(s string) error {
			_, _, err := ParseModel(s)
			return err
		},
	}
	model, err := modelPrompt.Run()
	if err != nil {
		return DocumentaryBase{}, fmt.Errorf("model: %w", err)
	}

	taskPrompt := promptui.Select{
		Label: "Task",
		Items: []string{string(TaskTextGeneration), string(TaskText2TextGeneration), string(TaskQuestionAnswering)},
	}
	_, task, err := taskPrompt.Run()
	if err != nil {
		return DocumentaryBase{}, fmt.Errorf("task selection: %w", err)
	}

	return DocumentaryBase{
		Name:        name,
		PersistPath: persistPath,
		Model:       model,
		Task:        Task(task),
		Kwargs:      Kwargs{"max_new_tokens": 256},
	}, nil
}
