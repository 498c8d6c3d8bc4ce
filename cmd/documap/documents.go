package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/documap/documap/pkg/datamap"
	"github.com/documap/documap/pkg/mapping"
	"github.com/documap/documap/pkg/query"
)

// fetchCmd represents the fetch command
var fetchCmd = &cobra.Command{
	Use:   "fetch [collection]",
	Short: "Fetch documents from a collection",
	Long:  `Fetch documents from a collection, optionally filtered, ordered and windowed.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		a, err := openAdapter(ctx, args[0])
		if err != nil {
			return err
		}
		defer a.Disconnect()

		scope, err := a.Query(args[0])
		if err != nil {
			return err
		}
		scope, err = applyWhere(cmd, scope)
		if err != nil {
			return err
		}

		if orders, _ := cmd.Flags().GetStringArray("order"); len(orders) > 0 {
			scope = scope.OrderBy(parseOrderings(orders)...)
		}
		if limit, _ := cmd.Flags().GetInt("limit"); limit > 0 {
			scope = scope.Limit(limit)
		}
		if offset, _ := cmd.Flags().GetInt("offset"); offset > 0 {
			scope = scope.Offset(offset)
		}

		entities, err := scope.Materialize(ctx)
		if err != nil {
			return err
		}
		return printEntities(entities)
	},
}

// insertCmd represents the insert command
var insertCmd = &cobra.Command{
	Use:   "insert [collection] [document-json]",
	Short: "Insert a document",
	Long:  `Insert a JSON document into a collection. The document is read from the argument, or from stdin when omitted.`,
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		doc, err := readDocument(args)
		if err != nil {
			return err
		}

		a, err := openAdapter(ctx, args[0])
		if err != nil {
			return err
		}
		defer a.Disconnect()

		created, err := a.Create(ctx, args[0], doc)
		if err != nil {
			return err
		}
		return printEntities([]interface{}{created})
	},
}

// deleteCmd represents the delete command
var deleteCmd = &cobra.Command{
	Use:   "delete [collection]",
	Short: "Delete documents matching a filter",
	Long:  `Delete every document in a collection matching the --where conditions. Refuses to run without a filter; use clear to empty a collection.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		conditions, _ := cmd.Flags().GetStringArray("where")
		if len(conditions) == 0 {
			return fmt.Errorf("delete requires at least one --where condition")
		}

		a, err := openAdapter(ctx, args[0])
		if err != nil {
			return err
		}
		defer a.Disconnect()

		scope, err := a.Query(args[0])
		if err != nil {
			return err
		}
		scope, err = applyWhere(cmd, scope)
		if err != nil {
			return err
		}

		deleted, err := a.Command(scope).Delete(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("Deleted %d document(s)\n", deleted)
		return nil
	},
}

// countCmd represents the count command
var countCmd = &cobra.Command{
	Use:   "count [collection]",
	Short: "Count documents in a collection",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		a, err := openAdapter(ctx, args[0])
		if err != nil {
			return err
		}
		defer a.Disconnect()

		scope, err := a.Query(args[0])
		if err != nil {
			return err
		}
		scope, err = applyWhere(cmd, scope)
		if err != nil {
			return err
		}

		n, err := scope.Count(ctx)
		if err != nil {
			return err
		}
		fmt.Println(n)
		return nil
	},
}

// clearCmd represents the clear command
var clearCmd = &cobra.Command{
	Use:   "clear [collection]",
	Short: "Remove every document in a collection",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		if confirmed, _ := cmd.Flags().GetBool("yes"); !confirmed {
			return fmt.Errorf("clear removes every document in %s; re-run with --yes to confirm", args[0])
		}

		a, err := openAdapter(ctx, args[0])
		if err != nil {
			return err
		}
		defer a.Disconnect()

		deleted, err := a.Clear(ctx, args[0])
		if err != nil {
			return err
		}
		fmt.Printf("Deleted %d document(s)\n", deleted)
		return nil
	},
}

// pingCmd represents the ping command
var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Check the configured connection",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		a, err := openAdapter(ctx, "_ping")
		if err != nil {
			return err
		}
		defer a.Disconnect()

		if err := a.Ping(ctx); err != nil {
			return err
		}
		fmt.Println("OK")
		return nil
	},
}

func setupCommands() {
	fetchCmd.Flags().StringArray("where", nil, "Filter condition field=value (repeatable)")
	fetchCmd.Flags().StringArray("order", nil, "Sort key, prefix with - for descending (repeatable)")
	fetchCmd.Flags().Int("limit", 0, "Maximum number of documents")
	fetchCmd.Flags().Int("offset", 0, "Number of documents to skip")

	deleteCmd.Flags().StringArray("where", nil, "Filter condition field=value (repeatable)")
	countCmd.Flags().StringArray("where", nil, "Filter condition field=value (repeatable)")
	clearCmd.Flags().Bool("yes", false, "Confirm removal of every document")

	rootCmd.AddCommand(fetchCmd, insertCmd, deleteCmd, countCmd, clearCmd, pingCmd)
}

// applyWhere narrows the scope with every --where condition.
func applyWhere(cmd *cobra.Command, scope datamap.ScopedQuery) (datamap.ScopedQuery, error) {
	conditions, _ := cmd.Flags().GetStringArray("where")
	if len(conditions) == 0 {
		return scope, nil
	}

	fields := make(map[string]interface{}, len(conditions))
	for _, condition := range conditions {
		field, value, ok := strings.Cut(condition, "=")
		if !ok {
			return scope, fmt.Errorf("invalid --where condition %q, expected field=value", condition)
		}
		fields[field] = parseValue(value)
	}
	return scope.FilterFields(fields), nil
}

// parseValue interprets a condition value as JSON when possible, falling
// back to the literal string.
func parseValue(raw string) interface{} {
	var v interface{}
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return raw
	}
	return v
}

func parseOrderings(orders []string) []query.Ordering {
	orderings := make([]query.Ordering, 0, len(orders))
	for _, field := range orders {
		if strings.HasPrefix(field, "-") {
			orderings = append(orderings, query.Desc(strings.TrimPrefix(field, "-")))
			continue
		}
		orderings = append(orderings, query.Asc(field))
	}
	return orderings
}

// readDocument parses the document from the argument or stdin.
func readDocument(args []string) (mapping.Record, error) {
	var data []byte
	if len(args) == 2 {
		data = []byte(args[1])
	} else {
		stdin, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, fmt.Errorf("reading document from stdin: %w", err)
		}
		data = stdin
	}

	var doc mapping.Record
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing document: %w", err)
	}
	return doc, nil
}

func printEntities(entities []interface{}) error {
	out, err := json.MarshalIndent(entities, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
