package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/Sethyshola20/T-itw/pkg/config"
	"github.com/Sethyshola20/T-itw/pkg/logging"
	"github.com/Sethyshola20/T-itw/pkg/rag"
	"github.com/Sethyshola20/T-itw/server"
	"github.com/charmbracelet/log"
	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	configPath string
	logLevel   string
)

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		color.Red("Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "docrag",
		Short:         "Index engineering documents and answer questions grounded in them",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override the configured log level")

	root.AddCommand(
		newIndexCmd(),
		newSearchCmd(),
		newAskCmd(),
		newStatusCmd(),
		newDeleteCmd(),
		newServeCmd(),
	)
	return root
}

func loadConfig() (*config.Config, *log.Logger, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, nil, err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if errs := cfg.Validate(); len(errs) > 0 {
		msgs := make([]string, len(errs))
		for i, e := range errs {
			msgs[i] = e.Error()
		}
		return nil, nil, fmt.Errorf("invalid configuration:\n  %s", strings.Join(msgs, "\n  "))
	}

	logger := logging.New(logging.Options{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: os.Stderr,
	})
	return cfg, logger, nil
}

// withApp loads configuration, wires the service and releases it after fn returns.
func withApp(cmd *cobra.Command, onProgress func(string, int, int), fn func(ctx context.Context, cfg *config.Config, a *app) error) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := buildApp(cmd.Context(), cfg, logger, onProgress)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(cmd.Context(), cfg, a)
}

func newIndexCmd() *cobra.Command {
	var id, title string
	cmd := &cobra.Command{
		Use:   "index <file-or-url>",
		Short: "Extract, chunk, embed and store a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			bar := getProgressBar(len(indexStages), " Indexing document")
			return withApp(cmd, indexProgress(bar), func(ctx context.Context, _ *config.Config, a *app) error {
				req := rag.IngestRequest{DocumentID: id, Title: title}
				if strings.HasPrefix(args[0], "http://") || strings.HasPrefix(args[0], "https://") {
					req.URL = args[0]
				} else {
					req.FilePath = args[0]
				}

				doc, err := a.service.Ingest(ctx, req)
				bar.Finish()
				if err != nil {
					return err
				}
				color.Green("\n✓ Indexed %s (%s) into %d chunks\n", doc.ID, doc.Title, doc.ChunkCount)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "Document ID (a new UUID when empty)")
	cmd.Flags().StringVar(&title, "title", "", "Document title (defaults to the extracted project name)")
	return cmd
}

func newSearchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "search <document-id> <query>",
		Short: "Show the passages of a document that match a query",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, nil, func(ctx context.Context, _ *config.Config, a *app) error {
				results, err := a.service.Search(ctx, args[0], strings.Join(args[1:], " "))
				if err != nil {
					return err
				}
				if len(results) == 0 {
					color.Yellow("No passages above the similarity threshold\n")
					return nil
				}
				out := cmd.OutOrStdout()
				for _, r := range results {
					fmt.Fprintf(out, "%s %s\n%s\n\n", color.CyanString("[%d]", r.ChunkIndex), color.BlueString("%.3f", r.Score), r.Text)
				}
				return nil
			})
		},
	}
}

func newAskCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ask <document-id> [question]",
		Short: "Answer a question from a document, or chat when no question is given",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, nil, func(ctx context.Context, _ *config.Config, a *app) error {
				documentID := args[0]
				if len(args) > 1 {
					return ask(ctx, a.service, documentID, strings.Join(args[1:], " "))
				}

				color.Cyan("\nAsk questions about %s (type 'exit' to quit)", documentID)
				userPrompt := color.New(color.FgGreen).PrintfFunc()
				scanner := bufio.NewScanner(cmd.InOrStdin())
				for {
					userPrompt("\nYou: ")
					if !scanner.Scan() {
						return scanner.Err()
					}
					question := strings.TrimSpace(scanner.Text())
					if question == "exit" {
						return nil
					}
					if question == "" {
						continue
					}
					if err := ask(ctx, a.service, documentID, question); err != nil {
						color.Red("Error: %v\n", err)
					}
				}
			})
		},
	}
}

func ask(ctx context.Context, service *rag.Service, documentID, question string) error {
	spinner := getSpinner(" Thinking...")
	answer, err := service.Ask(ctx, documentID, question)
	spinner.Finish()
	if err != nil {
		return err
	}

	assistantPrompt := color.New(color.FgCyan).PrintfFunc()
	assistantPrompt("\nAssistant: ")
	fmt.Println(answer.Text)
	if !answer.Fallback {
		color.HiBlack("(%d passages)\n", len(answer.Passages))
	}
	return nil
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status [document-id]",
		Short: "List indexed documents or show one",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, nil, func(ctx context.Context, _ *config.Config, a *app) error {
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
				defer w.Flush()

				if len(args) == 1 {
					doc, err := a.service.Document(ctx, args[0])
					if err != nil {
						return err
					}
					fmt.Fprintf(w, "ID:\t%s\n", doc.ID)
					fmt.Fprintf(w, "Title:\t%s\n", doc.Title)
					fmt.Fprintf(w, "Source:\t%s\n", doc.Source)
					fmt.Fprintf(w, "Status:\t%s\n", doc.Status)
					fmt.Fprintf(w, "Chunks:\t%d\n", doc.ChunkCount)
					fmt.Fprintf(w, "Type:\t%s\n", doc.Metadata.DocumentType)
					fmt.Fprintf(w, "Firm:\t%s\n", doc.Metadata.EngineeringFirm)
					fmt.Fprintf(w, "Updated:\t%s\n", doc.UpdatedAt.Format("2006-01-02 15:04:05"))
					return nil
				}

				docs, err := a.service.Documents(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintln(w, "ID\tTITLE\tSTATUS\tCHUNKS\tUPDATED")
				for _, d := range docs {
					fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n", d.ID, d.Title, d.Status, d.ChunkCount, d.UpdatedAt.Format("2006-01-02 15:04"))
				}
				return nil
			})
		},
	}
}

func newDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <document-id>",
		Short: "Remove a document and its chunks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, nil, func(ctx context.Context, _ *config.Config, a *app) error {
				if err := a.service.Delete(ctx, args[0]); err != nil {
					return err
				}
				color.Green("✓ Deleted %s\n", args[0])
				return nil
			})
		},
	}
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP and websocket API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			a, err := buildApp(cmd.Context(), cfg, logger, nil)
			if err != nil {
				return err
			}
			defer a.Close()

			srv := server.NewWithConfig(server.ServerConfig{
				Addr:           fmt.Sprintf(":%d", cfg.Server.Port),
				MaxUploadBytes: cfg.Server.MaxUploadBytes,
			}, a.service, logger)
			if err := srv.ListenAndServe(cmd.Context()); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}
}
