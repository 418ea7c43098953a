package main

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/IlliaSobcko/AIBI-Project/instructions"
	"github.com/IlliaSobcko/AIBI-Project/internal/pathutil"
)

func newInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init [dir]",
		Short: "Initialize config.yaml and the starter instructions",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "~/.aibi/"
			if len(args) == 1 && strings.TrimSpace(args[0]) != "" {
				dir = args[0]
			}
			dir = pathutil.ExpandHomePath(dir)
			if strings.TrimSpace(dir) == "" {
				return fmt.Errorf("invalid dir")
			}
			dir = filepath.Clean(dir)

			if err := os.MkdirAll(dir, 0o755); err != nil {
				return err
			}

			cfgPath := filepath.Join(dir, "config.yaml")
			if _, err := os.Stat(cfgPath); err == nil {
				return fmt.Errorf("config already exists: %s", cfgPath)
			}

			in := bufio.NewReader(cmd.InOrStdin())
			botToken, err := promptSecret(in, "Reviewer bot token (Telegram)")
			if err != nil {
				return err
			}
			accountToken, err := promptSecret(in, "Account bot token (leave blank to reuse the reviewer bot)")
			if err != nil {
				return err
			}
			apiKey, err := promptSecret(in, "LLM API key")
			if err != nil {
				return err
			}
			ownerID, err := promptLine(in, "Owner Telegram user ID")
			if err != nil {
				return err
			}

			cfg := initConfigTemplate(dir, botToken, accountToken, apiKey, ownerID)
			if err := os.WriteFile(cfgPath, []byte(cfg), 0o600); err != nil {
				return err
			}

			instr := instructions.NewManager(
				filepath.Join(dir, "instructions.md"),
				filepath.Join(dir, "instructions_dynamic.md"),
				filepath.Join(dir, "instruction_backups"),
			)
			if err := instr.EnsureDefault(); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "initialized %s\n", dir)
			return nil
		},
	}

	return cmd
}

// promptSecret reads without echo when stdin is a terminal, so tokens
// do not land in shell history or scrollback.
func promptSecret(in *bufio.Reader, label string) (string, error) {
	fmt.Fprintf(os.Stderr, "%s: ", label)
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		raw, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(raw)), nil
	}
	line, err := in.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func promptLine(in *bufio.Reader, label string) (string, error) {
	fmt.Fprintf(os.Stderr, "%s: ", label)
	line, err := in.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func initConfigTemplate(dir, botToken, accountToken, apiKey, ownerID string) string {
	if strings.TrimSpace(ownerID) == "" {
		ownerID = "0"
	}
	return fmt.Sprintf(`file_state_dir: %q

llm:
  provider: openai
  endpoint: https://api.perplexity.ai
  model: sonar
  api_key: %q

telegram:
  bot_token: %q
  account_token: %q
  owner_id: %s

working_hours:
  start: 9
  end: 18
  timezone: Europe/Kyiv

scheduler:
  enabled: false
`, filepath.ToSlash(dir), apiKey, botToken, accountToken, ownerID)
}
