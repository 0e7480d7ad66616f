package app

import (
	"net/http"
	"os"
	"runtime"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/womat/debug"

	"irl/pkg/irprotocol"
	"irl/pkg/port"
)

// HandleHealth returns data about the health of myself.
// output example:
//
//	{"NumGoroutines":11,"HeapAllocatedBytes":332256360,"HeapAllocatedMB":316,"SysMemoryBytes":360290312,
//	 "SysMemoryMB":343,"Version":"1.0.0+20261001","ProgLang":"go1.21.5","Protocols":["nec","sony12"],
//	 "IdleMicros":1250000,"Sender":true}
func (app *App) HandleHealth() fiber.Handler {
	bToMb := func(b uint64) uint64 {
		return b / 1024 / 1024
	}

	host, _ := os.Hostname()

	return func(ctx *fiber.Ctx) error {
		debug.InfoLog.Print("web request health")

		var m runtime.MemStats
		runtime.ReadMemStats(&m)

		hab := m.Alloc
		smb := m.Sys

		healthData := struct {
			NumGoroutines      int
			NumCPU             int
			HeapAllocatedBytes uint64
			HeapAllocatedMB    uint64
			SysMemoryBytes     uint64
			SysMemoryMB        uint64
			Version            string
			ProgLang           string
			HostName           string
			Time               string
			Protocols          []irprotocol.Protocol
			IdleMicros         port.Micros
			Sender             bool
		}{
			NumGoroutines:      runtime.NumGoroutine(),
			NumCPU:             runtime.NumCPU(),
			HeapAllocatedBytes: hab,
			HeapAllocatedMB:    bToMb(hab),
			SysMemoryBytes:     smb,
			SysMemoryMB:        bToMb(smb),
			ProgLang:           runtime.Version(),
			Version:            VERSION,
			HostName:           host,
			Time:               time.Now().Format(time.RFC3339),
			Sender:             app.sender != nil,
		}
		if app.receiver != nil {
			healthData.Protocols = app.receiver.Protocols()
			healthData.IdleMicros = app.receiver.Timeout()
		}
		ctx.Status(http.StatusOK)
		return ctx.JSON(healthData)
	}
}
