package api

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/Kellerman81/go_admissions_admin/pkg/main/apperrors"
	"github.com/Kellerman81/go_admissions_admin/pkg/main/datatable"
	"github.com/gin-gonic/gin"
)

// gridRequest holds the legacy DataTables server side parameters.
type gridRequest struct {
	Echo    string
	Search  string
	Filters map[string]string
	SortCol int
	SortDir datatable.Direction
	Start   int
	Length  int
}

// gridResponse is the legacy DataTables answer. Every row starts with the
// record id followed by the rendered columns.
type gridResponse struct {
	Echo          string     `json:"sEcho"`
	TotalRecords  int        `json:"iTotalRecords"`
	TotalDisplay  int        `json:"iTotalDisplayRecords"`
	Data          [][]string `json:"aaData"`
	ColumnHeaders []string   `json:"aoColumns"`
}

func parseGridRequest(ctx *gin.Context) gridRequest {
	req := gridRequest{
		Echo:    ctx.Query("sEcho"),
		Search:  ctx.Query("sSearch"),
		Filters: make(map[string]string),
		SortDir: datatable.ParseDirection(ctx.DefaultQuery("sSortDir_0", "asc")),
	}
	req.SortCol, _ = strconv.Atoi(ctx.DefaultQuery("iSortCol_0", "0"))
	req.Start, _ = strconv.Atoi(ctx.DefaultQuery("iDisplayStart", "0"))
	req.Length, _ = strconv.Atoi(ctx.DefaultQuery("iDisplayLength", "10"))
	for key, vals := range ctx.Request.URL.Query() {
		if name, ok := strings.CutPrefix(key, "filter-"); ok && len(vals) > 0 && vals[0] != "" {
			req.Filters[name] = vals[0]
		}
	}
	return req
}

// Grid answers a DataTables request from the loaded records without
// touching the list state of the page.
func (l *list[T]) Grid(_ context.Context, req gridRequest) (gridResponse, error) {
	records := l.ctrl.Records()
	resp := gridResponse{
		Echo:         req.Echo,
		TotalRecords: len(records),
		Data:         [][]string{},
	}
	for _, col := range l.def.Columns {
		resp.ColumnHeaders = append(resp.ColumnHeaders, col.Label)
	}

	for key := range req.Filters {
		if !l.def.Columns.Filterable(key) {
			return resp, apperrors.Wrap(apperrors.ErrClassValidation, "grid", datatable.ErrInvalidColumn).WithContext("column", key)
		}
	}
	visible := datatable.Filter(records, req.Search, req.Filters, l.def.Columns)
	// column 0 is the id
	if req.SortCol > 0 && req.SortCol <= len(l.def.Columns) {
		col := l.def.Columns[req.SortCol-1]
		if col.Sortable {
			visible = datatable.Sort(visible, col.Key, req.SortDir, l.def.Columns)
		}
	}
	resp.TotalDisplay = len(visible)

	// iDisplayStart is a row offset, not a page boundary
	start := min(max(req.Start, 0), len(visible))
	end := len(visible)
	if req.Length > 0 {
		end = min(start+req.Length, end)
	}
	for _, rec := range visible[start:end] {
		row := make([]string, 0, len(l.def.Columns)+1)
		row = append(row, rec.RecordID())
		for idx := range l.def.Columns {
			row = append(row, l.def.Columns[idx].Display(rec))
		}
		resp.Data = append(resp.Data, row)
	}
	return resp, nil
}

func (a *App) handleGrid(c *gin.Context) {
	l, _, ok := a.listFor(c)
	if !ok {
		return
	}
	resp, err := l.Grid(c.Request.Context(), parseGridRequest(c))
	if err != nil {
		sendError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
