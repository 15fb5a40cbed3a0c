package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/roach88/qfilter/internal/condition"
	"github.com/roach88/qfilter/internal/filter"
	"github.com/roach88/qfilter/internal/querystring"
)

// EncodeOptions holds flags for the encode command.
type EncodeOptions struct {
	*RootOptions
	Include []string
}

// EncodeResult is the payload of the encode command.
type EncodeResult struct {
	Keys  map[string]string `json:"keys"`
	Query string            `json:"query"`
}

func (r EncodeResult) String() string {
	return r.Query
}

// NewEncodeCommand creates the encode command.
func NewEncodeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &EncodeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "encode <condition-file|->",
		Short: "Encode a condition tree as filter query parameters",
		Long: `Read a condition tree in its JSON or YAML map form and print the flat
filter keys that parse back to it.

Trees containing empty OR groups, or operands the value grammar cannot
carry, are rejected.

Example:
  echo '{"operator":"eq","field":"name","value":"ada"}' | qfilter encode -`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEncode(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringSliceVar(&opts.Include, "include", nil, "relation paths to add as the include parameter")
	return cmd
}

func runEncode(opts *EncodeOptions, source string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	var data []byte
	var err error
	if source == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(source)
	}
	if err != nil {
		return formatter.Fail(ExitCommandError, "E001", fmt.Sprintf("failed to read condition: %v", err), nil)
	}

	// YAML decoding keeps integer literals integral; JSON input is valid YAML.
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return formatter.Fail(ExitCommandError, "E001", fmt.Sprintf("failed to decode condition: %v", err), nil)
	}
	tree, err := condition.FromAny(raw)
	if err != nil {
		return formatter.Fail(ExitFailure, "INPUT_INVALID", err.Error(), nil)
	}
	formatter.VerboseLog("Encoding %s", condition.Format(tree))

	keys, err := filter.Encode(tree)
	if err != nil {
		return formatter.Fail(ExitFailure, "UNENCODABLE", err.Error(), nil)
	}

	query := querystring.Encode(keys, opts.Include).Encode()
	query = strings.NewReplacer("%5B", "[", "%5D", "]", "%3A", ":").Replace(query)
	return formatter.Success(EncodeResult{Keys: keys, Query: query})
}
