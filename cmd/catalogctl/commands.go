package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/unicatalog/backend/internal/domain"
	"github.com/unicatalog/backend/internal/usecase"
)

func newMergeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "merge",
		Short: "Merge both datasets and print the normalized catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			catalog, err := loadCatalog(cmd.Context())
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), struct {
				Status   usecase.CatalogStatus `json:"status"`
				Programs []domain.Program      `json:"programs"`
			}{catalog.Status(), catalog.Programs()})
		},
	}
}

func newListCmd() *cobra.Command {
	var (
		criteria usecase.Criteria
		level    string
		sortKey  string
		page     int
		size     int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Filter, sort and paginate the merged catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if sortKey != "" && !usecase.SortKey(sortKey).Valid() {
				return fmt.Errorf("%w: unknown sort key %q (want one of %v)", domain.ErrInvalidRequest, sortKey, usecase.SortKeys)
			}

			catalog, err := loadCatalog(cmd.Context())
			if err != nil {
				return err
			}

			criteria.Level = domain.Level(level)
			result, err := catalog.Query(criteria, usecase.SortKey(sortKey), page, size)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), result)
		},
	}

	cmd.Flags().StringVar(&criteria.Faculty, "faculty", "", "faculty substring")
	cmd.Flags().StringVar(&criteria.Code, "code", "", "program code substring")
	cmd.Flags().StringVarP(&criteria.Query, "query", "q", "", "free-text search")
	cmd.Flags().StringVar(&level, "level", "", "education level: bachelor, master, specialist, postgraduate, secondary")
	cmd.Flags().StringVar(&sortKey, "sort", "", "sort key, e.g. name-asc or price-desc")
	cmd.Flags().IntVar(&page, "page", 1, "1-based page number")
	cmd.Flags().IntVar(&size, "size", usecase.DefaultPageSize, "page size")
	return cmd
}

func newCompareCmd() *cobra.Command {
	var ids []int

	cmd := &cobra.Command{
		Use:   "compare",
		Short: "Print the comparison table and summary for a set of programs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			catalog, err := loadCatalog(cmd.Context())
			if err != nil {
				return err
			}

			selection := make([]domain.Program, 0, len(ids))
			for _, id := range ids {
				p, err := catalog.Get(id)
				if err != nil {
					return err
				}
				selection = append(selection, p)
			}

			table, err := usecase.CompareTable(selection)
			if err != nil {
				return err
			}
			summary, err := usecase.Summarize(selection)
			if err != nil {
				return err
			}

			return writeJSON(cmd.OutOrStdout(), struct {
				Table   []usecase.TableSection `json:"table"`
				Summary usecase.Summary        `json:"summary"`
			}{table, summary})
		},
	}

	cmd.Flags().IntSliceVar(&ids, "ids", nil, "comma-separated program ids")
	_ = cmd.MarkFlagRequired("ids")
	return cmd
}
