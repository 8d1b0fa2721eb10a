package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/efebarandurmaz/archsift/internal/app"
	"github.com/efebarandurmaz/archsift/internal/config"
	"github.com/efebarandurmaz/archsift/internal/llm"
)

func newProvidersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "providers",
		Short: "List available reasoning-service providers",
		Run: func(cmd *cobra.Command, args []string) {
			w := cmd.OutOrStdout()
			fmt.Fprintln(w, "Available reasoning-service providers:")
			fmt.Fprintln(w)
			for _, name := range app.ProviderNames() {
				url := llm.KnownProviders[name]
				switch {
				case name == "custom":
					url = "(set base_url to any OpenAI-compatible endpoint)"
				case url == "":
					url = "(default endpoint)"
				}
				fmt.Fprintf(w, "  %-14s %s\n", name, url)
			}
			fmt.Fprintln(w, "  none           (deterministic evaluation only)")
			fmt.Fprintln(w)
			fmt.Fprintln(w, "Configure in archsift.yaml or via environment:")
			fmt.Fprintf(w, "  %s_LLM_PROVIDER=groq\n", config.EnvPrefix)
			fmt.Fprintf(w, "  %s_LLM_API_KEY=gsk_...\n", config.EnvPrefix)
			fmt.Fprintf(w, "  %s_LLM_MODEL=llama-3.3-70b-versatile\n", config.EnvPrefix)
		},
	}
}
