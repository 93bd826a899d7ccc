package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/thekoushikdurgas/diary/internal/ai"
	"github.com/thekoushikdurgas/diary/internal/api/validate"
	"github.com/thekoushikdurgas/diary/internal/model"
	"github.com/thekoushikdurgas/diary/internal/services"
)

// itemAction builds a command that runs one on-demand AI action on an item
// and prints the field it fills.
func itemAction(use, short string, run func(ctx context.Context, a *app, userID, id string) (*model.ContentItem, error), field func(*model.ContentItem) string) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withUser(cmd, func(ctx context.Context, a *app, userID string) error {
				it, err := run(ctx, a, userID, args[0])
				if err != nil {
					return err
				}
				if jsonOutput {
					return printJSON(cmd.OutOrStdout(), it)
				}
				fmt.Fprintln(cmd.OutOrStdout(), field(it))
				return nil
			})
		},
	}
}

func newSummarizeCmd() *cobra.Command {
	return itemAction("summarize", "Summarize a note, link or recording",
		func(ctx context.Context, a *app, userID, id string) (*model.ContentItem, error) {
			return a.c.Library.SummarizeItem(ctx, userID, id)
		},
		func(it *model.ContentItem) string { return it.Summary })
}

func newTranscribeCmd() *cobra.Command {
	return itemAction("transcribe", "Transcribe an audio item",
		func(ctx context.Context, a *app, userID, id string) (*model.ContentItem, error) {
			return a.c.Library.TranscribeItem(ctx, userID, id)
		},
		func(it *model.ContentItem) string { return it.Transcription })
}

func newAnalyzeCmd() *cobra.Command {
	var prompt string
	cmd := itemAction("analyze", "Describe an image item",
		func(ctx context.Context, a *app, userID, id string) (*model.ContentItem, error) {
			return a.c.Library.AnalyzeItem(ctx, userID, id, prompt)
		},
		func(it *model.ContentItem) string { return it.AIAnalysis })
	cmd.Flags().StringVarP(&prompt, "prompt", "p", "", "What to look for (default: a general description)")
	return cmd
}

func newEditImageCmd() *cobra.Command {
	var prompt string
	cmd := itemAction("edit-image", "Edit an image item with an instruction",
		func(ctx context.Context, a *app, userID, id string) (*model.ContentItem, error) {
			return a.c.Library.EditImageItem(ctx, userID, id, prompt)
		},
		func(it *model.ContentItem) string { return "Edited " + it.ID })
	cmd.Flags().StringVarP(&prompt, "prompt", "p", "", "Edit instruction (required)")
	_ = cmd.MarkFlagRequired("prompt")
	return cmd
}

func newImagineCmd() *cobra.Command {
	var aspect string
	cmd := &cobra.Command{
		Use:   "imagine <prompt>...",
		Short: "Generate an image and save it as an item",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validate.AspectRatio(aspect); err != nil {
				return err
			}
			prompt := strings.Join(args, " ")
			return withUser(cmd, func(ctx context.Context, a *app, userID string) error {
				it, err := a.c.Library.GenerateImage(ctx, userID, prompt, ai.AspectRatio(aspect))
				if err != nil {
					return err
				}
				if jsonOutput {
					return printJSON(cmd.OutOrStdout(), it)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Generated %s %s\n", it.Type, it.ID)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&aspect, "aspect", string(ai.AspectSquare), "Aspect ratio: 1:1, 3:4, 4:3, 9:16 or 16:9")
	return cmd
}

func newOrganizeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "organize [id]...",
		Short: "Assign category and priority to items (all items when no ids are given)",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, id := range args {
				if err := validate.ItemID(id); err != nil {
					return err
				}
			}
			return withUser(cmd, func(ctx context.Context, a *app, userID string) error {
				organized, err := a.c.Library.Organize(ctx, userID, args...)
				if err != nil {
					return err
				}
				if jsonOutput {
					return printJSON(cmd.OutOrStdout(), organized)
				}
				for _, o := range organized {
					fmt.Fprintf(cmd.OutOrStdout(), "%s  %-16s priority %d\n", o.ID, o.Category, o.Priority)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Organized %d items\n", len(organized))
				return nil
			})
		},
	}
}

func newChatCmd() *cobra.Command {
	var deep bool
	var lat, lng float64
	cmd := &cobra.Command{
		Use:   "chat <prompt>...",
		Short: "Ask the assistant, with web (and optionally maps) grounding",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := services.ChatInput{Prompt: strings.Join(args, " ")}
			if cmd.Flags().Changed("deep") {
				in.DeepThought = &deep
			}
			latSet, lngSet := cmd.Flags().Changed("lat"), cmd.Flags().Changed("lng")
			if latSet != lngSet {
				return model.NewValidationError("location", "set both --lat and --lng")
			}
			if latSet {
				in.Location = &ai.Location{Latitude: lat, Longitude: lng}
			}
			if err := validate.Prompt(in.Prompt); err != nil {
				return err
			}
			if err := validate.Location(in.Location); err != nil {
				return err
			}

			return withUser(cmd, func(ctx context.Context, a *app, userID string) error {
				reply, err := a.c.Library.Chat(ctx, userID, in)
				if err != nil {
					return err
				}
				if jsonOutput {
					return printJSON(cmd.OutOrStdout(), reply)
				}
				w := cmd.OutOrStdout()
				fmt.Fprintln(w, reply.Text)
				if len(reply.Sources) > 0 {
					fmt.Fprintln(w, "\nSources:")
					for _, s := range reply.Sources {
						title := s.Title
						if title == "" {
							title = s.URI
						}
						fmt.Fprintf(w, "  [%s] %s  %s\n", s.Kind, title, s.URI)
					}
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&deep, "deep", false, "Use the reasoning model (default: your settings)")
	cmd.Flags().Float64Var(&lat, "lat", 0, "Latitude for place questions")
	cmd.Flags().Float64Var(&lng, "lng", 0, "Longitude for place questions")
	return cmd
}
