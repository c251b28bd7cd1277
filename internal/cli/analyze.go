package cli

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"mc-test-service/internal/app"
	"mc-test-service/internal/config"
	"mc-test-service/internal/infra/csvlog"
	filesource "mc-test-service/internal/infra/file"
)

// NewAnalyzeCmd prints the item analysis for one question set to stdout.
func NewAnalyzeCmd(configPath *string) *cobra.Command {
	var questionsFile string
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Print per-question difficulty and discrimination statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(cmd.Context(), *configPath, questionsFile)
		},
	}
	cmd.Flags().StringVar(&questionsFile, "questions", "", "questions_*.json file to analyze (required)")
	_ = cmd.MarkFlagRequired("questions")
	return cmd
}

func runAnalyze(ctx context.Context, configPath, questionsFile string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	set, err := filesource.NewQuestionLoader(cfg.Questions.Dir).LoadQuestionSet(ctx, questionsFile)
	if err != nil {
		return err
	}

	store := csvlog.New(cfg.Store.AnswersPath, config.TTLDuration(cfg.Store.LockTimeout, 5*time.Second))
	events, err := store.LoadAll(ctx)
	if err != nil {
		return err
	}

	filtered := events[:0]
	for _, ev := range events {
		if ev.QuestionsFile == questionsFile {
			filtered = append(filtered, ev)
		}
	}
	stats := app.BuildItemStats(filtered, set.Questions)

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "Nr\tAntworten\tRichtig\tSchwierigkeit\tTrennschärfe\tTop-Distraktor")
	for _, st := range stats {
		disc := "n/a"
		if st.Discrimination != nil {
			disc = fmt.Sprintf("%.2f (%s)", *st.Discrimination, st.DiscriminationLabel)
		}
		distractor := "-"
		if st.TopDistractor != "" {
			distractor = fmt.Sprintf("%s (%.0f%%)", st.TopDistractor, st.TopDistractorShare*100)
		}
		fmt.Fprintf(w, "%d\t%d\t%d\t%.1f%% (%s)\t%s\t%s\n",
			st.QuestionNr, st.Answers, st.Correct, st.DifficultyPct, st.DifficultyLabel, disc, distractor)
	}
	return w.Flush()
}
