package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/malandaymnhs/MALANDAYEDUTRACK-sub000/internal/datepolicy"
)

func (h *Handler) holidays(c *gin.Context) {
	loc := h.Policy.Location()
	year := h.Policy.Today().Year()
	if v := c.Query("year"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 1900 || parsed > 2200 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "year must be between 1900 and 2200"})
			return
		}
		year = parsed
	}
	type day struct {
		Date string `json:"date"`
		Name string `json:"name"`
		Kind string `json:"kind"`
	}
	list := datepolicy.Holidays(year, loc)
	out := make([]day, 0, len(list))
	for _, hd := range list {
		out = append(out, day{Date: hd.Date.Format("2006-01-02"), Name: hd.Name, Kind: hd.Kind})
	}
	c.JSON(http.StatusOK, gin.H{"year": year, "holidays": out, "timeSlots": timeSlots()})
}

func (h *Handler) checkDate(c *gin.Context) {
	ref := 0
	if v := c.Query("year"); v != "" {
		ref, _ = strconv.Atoi(v)
	}
	verdict, err := h.Policy.Evaluate(c.Query("date"), ref)
	if err != nil {
		writeError(c, err)
		return
	}
	resp := gin.H{"ok": verdict.OK, "reason": verdict.Reason, "holiday": verdict.Holiday, "message": verdict.Message()}
	if !verdict.OK {
		from, _ := h.Policy.ParseISO(c.Query("date"))
		if today := h.Policy.Today(); from.Before(today) {
			from = today
		}
		if next, ok := h.Policy.NextSelectable(from); ok {
			resp["next"] = next.Format("2006-01-02")
		}
	}
	c.JSON(http.StatusOK, resp)
}
