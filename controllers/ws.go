package controllers

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The app runs on a closed classroom network; browser dashboards connect
	// from the LAN address the teacher happens to use.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// DashboardWS upgrades a dashboard viewer connection and attaches it to the
// hub. Missed events are not replayed: viewers refetch the snapshot on every
// (re)connect.
func DashboardWS(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("ws: upgrade failed: %v", err)
		return
	}

	dashboardHub.ServeConn(conn)
}
