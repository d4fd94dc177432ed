package http_server

import (
	"errors"
	"net/http"
	"sort"

	"github.com/danthegoodman1/vcf2parquet/datastore"
	"github.com/danthegoodman1/vcf2parquet/utils"
)

type (
	column struct {
		Name string
		// Parts is the number of parts holding the column
		Parts int
	}
)

func (s *HTTPServer) ListPartsHandler(c *CustomContext) error {
	parts, err := s.meta.ListParts(c.Request().Context(), c.Param("dataset"))
	if err != nil {
		return c.InternalError(err, "error listing parts")
	}
	return c.JSON(http.StatusOK, parts)
}

// GetColumnsHandler lists every column seen in the parts of a dataset.
func (s *HTTPServer) GetColumnsHandler(c *CustomContext) error {
	parts, err := s.meta.ListParts(c.Request().Context(), c.Param("dataset"))
	if err != nil {
		return c.InternalError(err, "error getting columns")
	}

	counts := map[string]int{}
	var order []string
	for _, p := range parts {
		for _, col := range p.Columns {
			if counts[col] == 0 {
				order = append(order, col)
			}
			counts[col]++
		}
	}
	columns := make([]column, 0, len(order))
	for _, name := range order {
		columns = append(columns, column{Name: name, Parts: counts[name]})
	}
	sort.SliceStable(columns, func(i, j int) bool {
		return columns[i].Parts > columns[j].Parts
	})
	return c.JSON(http.StatusOK, utils.ArrayOrEmpty(columns))
}

// GetPartFileHandler streams a parquet file of the dataset from the data store.
func (s *HTTPServer) GetPartFileHandler(c *CustomContext) error {
	r, err := s.store.Open(c.Request().Context(), c.Param("dataset")+"/"+c.Param("name"))
	if errors.Is(err, datastore.ErrNotFound) || errors.Is(err, datastore.ErrBadName) {
		return c.String(http.StatusNotFound, "not found")
	}
	if err != nil {
		return c.InternalError(err, "error opening part file")
	}
	defer r.Close()
	return c.Stream(http.StatusOK, "application/vnd.apache.parquet", r)
}
