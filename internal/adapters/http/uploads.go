package http

import (
	"net/http"

	"github.com/dkeye/Meet/internal/domain"
	"github.com/gin-gonic/gin"
)

func (h *handlers) serveUpload(base string) gin.HandlerFunc {
	return func(c *gin.Context) {
		room := domain.RoomID(c.Param("room"))
		f, err := h.svc.Files.Open(room, base+"/"+c.Param("room")+"/"+c.Param("name"))
		if err != nil {
			c.AbortWithStatus(http.StatusNotFound)
			return
		}
		defer f.Close()
		st, err := f.Stat()
		if err != nil || st.IsDir() {
			c.AbortWithStatus(http.StatusNotFound)
			return
		}
		c.Header("X-Content-Type-Options", "nosniff")
		http.ServeContent(c.Writer, c.Request, st.Name(), st.ModTime(), f)
	}
}
