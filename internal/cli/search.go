package cli

import (
	"errors"
	"strings"

	"github.com/spf13/cobra"

	"whiterabbit/internal/domain"
	"whiterabbit/internal/stores/search"
)

type searchOutput struct {
	Query  string        `json:"query"`
	Total  int           `json:"total"`
	Groups []searchGroup `json:"groups"`
}

type searchGroup struct {
	Category domain.Category     `json:"type"`
	Items    []domain.ResultItem `json:"items"`
}

func init() {
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search mysteries, locations, time periods and categories",
		Args:  cobra.ExactArgs(1),
		RunE:  runSearch,
	}

	cmd.Flags().IntP("limit", "n", 0, "Maximum results (default: search.limit from config)")

	RootCmd.AddCommand(cmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	query := strings.TrimSpace(args[0])
	if query == "" {
		return errors.New("query must not be blank")
	}

	_, cfg, err := loadConfig(nil)
	if err != nil {
		return err
	}
	if limit, _ := cmd.Flags().GetInt("limit"); limit > 0 {
		cfg.Search.Limit = limit
	}
	logger, err := newLogger(cfg, cfg.Log.File)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	settled := make(chan search.State, 1)
	store := search.New(search.FromClient(newClient(cfg, logger)), search.Options{
		Limit:  cfg.Search.Limit,
		Logger: logger,
		OnChange: func(st search.State) {
			if st.Phase != search.PhaseSettledOK && st.Phase != search.PhaseSettledError {
				return
			}
			select {
			case settled <- st:
			default:
			}
		},
	})
	defer store.Close()

	store.SetQuery(query)
	store.Flush()

	var st search.State
	select {
	case st = <-settled:
	case <-cmd.Context().Done():
		return cmd.Context().Err()
	}
	if st.Phase == search.PhaseSettledError {
		return errors.New(st.Error)
	}

	out := searchOutput{Query: query, Total: len(st.Results), Groups: []searchGroup{}}
	for _, g := range st.Groups() {
		out.Groups = append(out.Groups, searchGroup{Category: g.Category, Items: g.Items})
	}
	return printJSON(cmd, out)
}
