package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/IlliaSobcko/AIBI-Project/assistant"
	"github.com/IlliaSobcko/AIBI-Project/chat"
)

// fixtureFile mirrors the chat log shape so a YAML file can stand in
// for live Telegram traffic during a dry run.
type fixtureFile struct {
	Chats []fixtureChat `yaml:"chats"`
}

type fixtureChat struct {
	ChatID   int64            `yaml:"chat_id"`
	Title    string           `yaml:"title"`
	Messages []fixtureMessage `yaml:"messages"`
}

type fixtureMessage struct {
	Text   string    `yaml:"text"`
	File   string    `yaml:"file"`
	SentAt time.Time `yaml:"sent_at"`
}

type fixtureSource struct {
	units []chat.History
}

func (f fixtureSource) Collect(since time.Time) ([]chat.History, error) {
	return f.units, nil
}

func newCheckCmd() *cobra.Command {
	var fixtures string

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Run one analysis cycle over the collected chats and print the summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := buildServices()
			if err != nil {
				return err
			}
			defer svc.Close()

			if fixtures != "" {
				units, err := loadFixtures(fixtures)
				if err != nil {
					return err
				}
				svc.Assistant.Units = fixtureSource{units: units}
			}

			sum, err := svc.Assistant.RunCycle(cmd.Context(), assistant.TriggerManual)
			if errors.Is(err, assistant.ErrCycleInProgress) {
				return errors.New("an analysis cycle is already running")
			}
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Analysis complete.\n%s\n", sum.String())
			return nil
		},
	}

	cmd.Flags().StringVar(&fixtures, "fixtures", "", "YAML file of chats to analyze instead of the live chat log.")
	return cmd
}

func loadFixtures(path string) ([]chat.History, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixtures: %w", err)
	}

	var file fixtureFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse fixtures: %w", err)
	}

	units := make([]chat.History, 0, len(file.Chats))
	for _, c := range file.Chats {
		h := chat.History{ChatID: c.ChatID, Title: c.Title}
		for i, m := range c.Messages {
			h.Messages = append(h.Messages, chat.Message{
				ID:        int64(i + 1),
				Text:      m.Text,
				FileLabel: m.File,
				SentAt:    m.SentAt,
			})
		}
		units = append(units, h)
	}
	return units, nil
}
