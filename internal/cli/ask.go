package cli

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "ask",
		Short: "Ask a question, or chat interactively when --query is omitted",
		RunE:  runAsk,
	}
	cmd.Flags().String("collection", "", "Collection name (required)")
	cmd.Flags().StringP("query", "q", "", "Question to answer")
	cmd.Flags().IntP("top-k", "k", 0, "Chunks to retrieve (default from config)")
	cmd.MarkFlagRequired("collection")
	RootCmd.AddCommand(cmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	collection, _ := cmd.Flags().GetString("collection")
	query, _ := cmd.Flags().GetString("query")
	k, _ := cmd.Flags().GetInt("top-k")
	ctx := cmd.Context()

	store, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore(store)

	if err := requireExisting(ctx, store, collection); err != nil {
		return err
	}
	sess, err := openSession(ctx, store, collection)
	if err != nil {
		return err
	}
	defer sess.Close()

	out := cmd.OutOrStdout()
	if query != "" {
		answer, err := sess.AnswerQuery(ctx, query, k)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, answer)
		return nil
	}

	// one session for the whole loop so follow-ups see the history
	fmt.Fprintln(out, `Ask about the resume. "/reset" clears the conversation, "/exit" quits.`)
	scanner := bufio.NewScanner(cmd.InOrStdin())
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "/exit", "/quit":
			return nil
		case "/reset":
			sess.ClearMemory()
			fmt.Fprintln(out, "Conversation cleared.")
			continue
		}
		answer, err := sess.AnswerQuery(ctx, line, k)
		if err != nil {
			fmt.Fprintf(out, "error: %v\n", err)
			continue
		}
		summary := sess.MemorySummary()
		fmt.Fprintf(out, "%s\n(%d exchanges in memory)\n", answer, summary.ExchangeCount)
	}
}
