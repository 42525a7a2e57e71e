package serialmux

import (
	"fmt"
	"html/template"
	"net/http"
	"slices"
	"strings"

	"tailscale.com/tsweb"

	"github.com/Naresh-ado/parking-final/internal/httputil"
)

// AdminCommands are the commands the debug page may send by hand. OPEN is
// absent: the gate only opens after a granted access decision.
var AdminCommands = []string{"CLOSE"}

var commandPage = template.Must(template.New("send-command").Parse(commandPageHTML))

// attachAdminRoutes registers the manual command page, its POST endpoint,
// a JSON stats endpoint and the SSE tail of board output.
func attachAdminRoutes(mux *http.ServeMux, link SerialMuxInterface) {
	debug := tsweb.Debugger(mux)
	debug.KVFunc("Serial", func() any { return link.Stats().String() })

	debug.HandleFunc("send-command", "Send CLOSE to the gate board", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := commandPage.Execute(w, AdminCommands); err != nil {
			http.Error(w, "Failed to render template", http.StatusInternalServerError)
		}
	})
	debug.HandleSilentFunc("send-command-api", sendCommandHandler(link))
	debug.HandleSilentFunc("serial-stats", func(w http.ResponseWriter, r *http.Request) {
		if !httputil.RequireMethod(w, r, http.MethodGet) {
			return
		}
		httputil.WriteJSON(w, http.StatusOK, link.Stats())
	})
	debug.HandleSilentFunc("tail", tailHandler(link))
}

func sendCommandHandler(link SerialMuxInterface) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		command := strings.ToUpper(strings.TrimSpace(r.FormValue("command")))
		switch {
		case command == "":
			http.Error(w, "Missing command", http.StatusBadRequest)
			return
		case !slices.Contains(AdminCommands, command):
			http.Error(w, fmt.Sprintf("Unknown command %q", command), http.StatusBadRequest)
			return
		}
		if err := link.SendCommand(command); err != nil {
			http.Error(w, "Failed to write command", http.StatusInternalServerError)
			return
		}
		fmt.Fprintf(w, "Wrote command %q to serial port", command)
	}
}

// tailHandler streams board lines as server-sent events until the client
// goes away or the link closes.
func tailHandler(link SerialMuxInterface) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		flusher, ok := w.(http.Flusher)
		if !ok {
			http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
			return
		}

		h := w.Header()
		h.Set("Content-Type", "text/event-stream")
		h.Set("Cache-Control", "no-cache")
		h.Set("Connection", "keep-alive")
		h.Set("X-Accel-Buffering", "no")

		id, lines := link.Subscribe()
		defer link.Unsubscribe(id)

		fmt.Fprint(w, ": ping\n\n")
		flusher.Flush()
		for {
			select {
			case line, ok := <-lines:
				if !ok {
					return
				}
				if _, err := fmt.Fprintf(w, "data: %s\n\n", line); err != nil {
					return
				}
				flusher.Flush()
			case <-r.Context().Done():
				return
			}
		}
	}
}

const commandPageHTML = `<!doctype html>
<html>
<head><title>Gate board</title></head>
<body>
<h1>Gate board</h1>
<p>Manual CLOSE only. Opening requires a granted access decision.</p>
<form id="cmd">
{{range .}}  <button name="command" value="{{.}}">{{.}}</button>
{{end}}
</form>
<pre id="log"></pre>
<script>
const log = document.getElementById("log");
document.getElementById("cmd").addEventListener("submit", async (e) => {
  e.preventDefault();
  const body = new URLSearchParams({command: e.submitter.value});
  const res = await fetch("send-command-api", {method: "POST", body});
  log.textContent += "> " + (await res.text()) + "\n";
});
const tail = new EventSource("tail");
tail.onmessage = (e) => { log.textContent += "< " + e.data + "\n"; };
</script>
</body>
</html>
`
