package main

import (
	"encoding/json"
	"io"
	"strings"

	"github.com/pkg/errors"
	"github.com/rzpsarthak13/joinstore/pkg/joinstore"
	"github.com/spf13/cobra"
)

func newQueryCommand(stdout io.Writer) *cobra.Command {
	var (
		table  string
		joins  []string
		limit  int
		offset int
		pretty bool
	)
	cmd := &cobra.Command{
		Use:   "query",
		Short: "Query a table and its joins and print the result as JSON.",
		Long: `
Prints {t, id, val, $} items for a table. Each --join is a dotted path
of join names or table names, e.g. --join userAddresses.addressStates.
Limits apply to the top-level table.
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if table == "" {
				return errors.New("--table is required")
			}
			db, err := openDB(cmd)
			if err != nil {
				return err
			}
			defer db.Close()

			def := joinstore.QueryDef{Table: table}
			if limit > 0 || offset > 0 {
				def.Sel = []joinstore.Selector{joinstore.Choose{From: offset, Count: limit}}
			}
			for _, path := range joins {
				def.Joins = addJoinPath(db, def.Joins, strings.Split(path, "."))
			}

			out, err := db.Query(def)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(stdout)
			if pretty {
				enc.SetIndent("", "  ")
			}
			return enc.Encode(out)
		},
	}
	flags := cmd.Flags()
	flags.StringVarP(&table, "table", "t", "", "Table to query.")
	flags.StringSliceVarP(&joins, "join", "j", nil, "Dotted join path; repeatable.")
	flags.IntVar(&limit, "limit", 0, "Maximum number of top-level items. 0 means all.")
	flags.IntVar(&offset, "offset", 0, "Number of top-level items to skip.")
	flags.BoolVar(&pretty, "pretty", false, "Indent the JSON output.")
	return cmd
}

// addJoinPath merges one dotted path into specs, reusing the spec already
// present for a shared prefix. A segment naming an existing join is a join
// name; anything else is a table name.
func addJoinPath(db *joinstore.DB, specs []joinstore.JoinSpec, path []string) []joinstore.JoinSpec {
	if len(path) == 0 || path[0] == "" {
		return specs
	}
	seg := path[0]
	for i := range specs {
		if specs[i].JoinName == seg || specs[i].TableName == seg {
			specs[i].Joins = addJoinPath(db, specs[i].Joins, path[1:])
			return specs
		}
	}
	spec := joinstore.JoinSpec{TableName: seg}
	if _, err := db.Join(seg); err == nil {
		spec = joinstore.JoinSpec{JoinName: seg}
	}
	spec.Joins = addJoinPath(db, nil, path[1:])
	return append(specs, spec)
}
