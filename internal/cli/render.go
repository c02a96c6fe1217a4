package cli

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/syssam/derive/dialect"
)

// RenderOptions holds flags for the render command.
type RenderOptions struct {
	*RootOptions
	TargetOptions
	OperationOptions
}

// NewRenderCommand creates the render command.
func NewRenderCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RenderOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render the statement of an operation",
		Long: `Render derives an operation from a method name or a declarative query
and prints the statement text followed by the parameter of every
placeholder, in placeholder order.`,
		Example: `  derive render -s library.yaml -d postgres -e Book -m findByTitleContains -p title:string
  derive render -s library.yaml -d cosmos -q "SELECT b FROM Book b WHERE b.pages > :min" -p min:int`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRender(opts, cmd.OutOrStdout())
		},
	}

	opts.TargetOptions.flags(cmd)
	opts.OperationOptions.flags(cmd)

	return cmd
}

func runRender(opts *RenderOptions, w io.Writer) error {
	reg, op, err := opts.operation()
	if err != nil {
		return err
	}
	eng, target, err := opts.engine(opts.RootOptions, reg)
	if err != nil {
		return err
	}
	st, err := eng.Render(target, op)
	if err != nil {
		return err
	}
	printStatement(w, st)
	return nil
}

// printStatement writes the text of st and one line per placeholder.
func printStatement(w io.Writer, st *dialect.Statement) {
	fmt.Fprintln(w, st.Text)
	for i, p := range st.Params {
		slot := strconv.Itoa(i + 1)
		if i < len(st.Names) {
			slot = st.Names[i]
		}
		typ := "any"
		if p.Type.Valid() {
			typ = p.Type.String()
		}
		if p.Collection {
			typ = "[]" + typ
		}
		fmt.Fprintf(w, "  %s\t%s\t%s\n", slot, p, typ)
	}
	if pk := st.PartitionKey; pk != nil {
		if pk.Slot < 0 {
			fmt.Fprintf(w, "  partition key %s: cross-partition\n", pk.Path)
		} else {
			fmt.Fprintf(w, "  partition key %s: slot %d\n", pk.Path, pk.Slot+1)
		}
	}
	if st.Paging != nil {
		fmt.Fprintf(w, "  paging: limit %d offset %d\n", st.Paging.Limit, st.Paging.Offset)
	}
}
