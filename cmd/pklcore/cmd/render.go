package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"

	"github.com/pklcore/pklcore/internal/hostio"
	"github.com/pklcore/pklcore/internal/interp"
	"github.com/pklcore/pklcore/internal/prelude"
	"github.com/pklcore/pklcore/internal/runtime"
	"github.com/pklcore/pklcore/internal/vmerrors"
	"github.com/pklcore/pklcore/internal/vmrender"
	"github.com/pklcore/pklcore/internal/vmrender/jsonrender"
	"github.com/pklcore/pklcore/internal/vmrender/yamlrender"
	"github.com/pklcore/pklcore/pkg/ident"
)

var (
	renderFormat string
	renderColor  bool
	timeout      time.Duration
)

var renderCmd = &cobra.Command{
	Use:   "render [file]",
	Short: "Force a value tree through the evaluator and render it",
	Long: `Ingest a JSON document as a tree of Dynamic objects, force it through
the evaluator's member tables and memo caches, and render the result.

This is the reference front end for the evaluator pipeline: a real Pkl
front end would hand the driver a parsed module instead of a JSON tree.

Examples:
  # Round-trip a JSON config through the evaluator
  pklcore render config.json

  # Render as YAML
  pklcore render --format yaml config.json`,
	Args: cobra.ExactArgs(1),
	RunE: runRender,
}

func init() {
	rootCmd.AddCommand(renderCmd)

	renderCmd.Flags().StringVarP(&renderFormat, "format", "f", "json", "output format: json or yaml")
	renderCmd.Flags().BoolVar(&renderColor, "color", false, "colorize error reports")
	renderCmd.Flags().DurationVar(&timeout, "timeout", 0, "evaluation deadline (0 = none)")
}

func runRender(_ *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read file %s: %w", args[0], err)
	}
	if !gjson.ValidBytes(data) {
		return fmt.Errorf("%s is not valid JSON", args[0])
	}

	pool := ident.NewPool()
	in := interp.NewInterpreter(pool, hostio.NewFixtureLoader(), hostio.NewFixtureLoader(), nil)
	prelude.Load(in)
	if timeout > 0 {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		in.WithDeadline(ctx, time.Now().Add(timeout))
	}

	root := jsonToValue(in, pool, gjson.ParseBytes(data))

	var renderer vmrender.Renderer
	switch renderFormat {
	case "json":
		renderer = jsonrender.New(in)
	case "yaml":
		renderer = yamlrender.New(in)
	default:
		return fmt.Errorf("unknown format %q (want json or yaml)", renderFormat)
	}

	out, rerr := renderer.Render(root)
	if rerr != nil {
		if verr, ok := rerr.(*vmerrors.Error); ok {
			fmt.Fprintln(os.Stderr, verr.Report(renderColor))
			return fmt.Errorf("evaluation failed")
		}
		return rerr
	}
	fmt.Println(string(out))
	return nil
}

// jsonToValue converts a parsed JSON tree into the evaluator's value algebra:
// objects become Dynamic VmObjects with constant members, arrays become
// Listings, scalars become primitives.
func jsonToValue(in *interp.Interpreter, pool *ident.Pool, r gjson.Result) runtime.Value {
	switch {
	case r.IsObject():
		obj := interp.NewObject(interp.VariantDynamic, nil, nil, nil, nil)
		r.ForEach(func(key, value gjson.Result) bool {
			id := pool.Intern(key.String()).Public()
			obj.Members.Put(interp.IdentKey(id), &interp.Member{Const: jsonToValue(in, pool, value)})
			return true
		})
		return obj
	case r.IsArray():
		obj := interp.NewObject(interp.VariantListing, nil, nil, nil, nil)
		for _, elem := range r.Array() {
			obj.Members.Put(interp.IndexKey(obj.NextIndex), &interp.Member{Const: jsonToValue(in, pool, elem)})
			obj.NextIndex++
		}
		return obj
	case r.Type == gjson.Null:
		return runtime.NullValue
	case r.Type == gjson.True:
		return runtime.Bool{Value: true}
	case r.Type == gjson.False:
		return runtime.Bool{Value: false}
	case r.Type == gjson.Number:
		if float64(int64(r.Num)) == r.Num {
			return runtime.Int{Value: int64(r.Num)}
		}
		return runtime.Float{Value: r.Num}
	default:
		return runtime.String{Value: r.String()}
	}
}
