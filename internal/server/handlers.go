// Package server exposes HTTP handlers, including WebSocket upgrades, health
// checks, invite links, and the built-in test page.
package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
)

// WebSocketHandler upgrades GET /ws and registers the connection with the
// hub, which launches its pumps.
func (s *Server) WebSocketHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed. WebSocket endpoint only accepts GET requests.", http.StatusMethodNotAllowed)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", "addr", r.RemoteAddr, "err", err)
		return
	}

	client := NewClient(conn, s.hub, r.RemoteAddr, &s.cfg)
	if !s.hub.Register(client) {
		client.closeConnection()
	}
}

// HealthHandler provides a simple health check endpoint that returns server
// status. Invite links (/?room=...) get the test page instead.
func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/" && r.URL.Query().Get("room") != "" {
		TestPageHandler(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/plain")
	_, _ = fmt.Fprint(w, "relaychat server is running!")
}

// ReadyHandler answers GET /ready with 200 while the hub accepts clients and
// the upload store is reachable, and 503 otherwise.
func (s *Server) ReadyHandler(w http.ResponseWriter, _ *http.Request) {
	status, code := "ready", http.StatusOK
	if s.hub.ctx.Err() != nil || !s.uploads.Ready() {
		status, code = "unavailable", http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": status})
}

// InviteHandler answers GET /invite/{room} with a join link for a populated
// room, or 404 when the room does not exist.
func (s *Server) InviteHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	room := r.PathValue("room")
	w.Header().Set("Content-Type", "application/json")
	if !s.rooms.Exists(room) {
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "Room not found"})
		return
	}

	proto := r.Header.Get("X-Forwarded-Proto")
	if proto == "" {
		proto = "http"
	}
	host := r.Host
	if host == "" {
		host = "localhost" + s.cfg.Port
	}
	link := fmt.Sprintf("%s://%s/?room=%s", proto, host, url.QueryEscape(room))
	_ = json.NewEncoder(w).Encode(map[string]string{"inviteLink": link})
}

// TestPageHandler serves an HTML page for exercising the chat protocol from
// a browser.
func TestPageHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html")
	_, _ = fmt.Fprint(w, testPage)
}

const testPage = `<!DOCTYPE html>
<html>
<head>
    <title>relaychat test</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 20px; }
        #log { border: 1px solid #ccc; height: 320px; padding: 10px; overflow-y: scroll; margin: 10px 0; background-color: #f9f9f9; }
        input[type="text"] { width: 200px; padding: 5px; margin-right: 10px; }
        button { padding: 5px 15px; background-color: #007cba; color: white; border: none; cursor: pointer; }
        button:hover { background-color: #005a87; }
        .system { color: gray; font-style: italic; }
        .user { color: #155724; }
    </style>
</head>
<body>
    <h1>relaychat test</h1>
    <div>
        <input type="text" id="username" placeholder="Username">
        <input type="text" id="room" placeholder="Room" value="lobby">
        <button onclick="join()">Join</button>
        <button onclick="send('get_users')">Users</button>
        <button onclick="send('get_rooms')">Rooms</button>
    </div>
    <div id="log"></div>
    <div>
        <input type="text" id="message" placeholder="Type a message..." oninput="typing()">
        <button onclick="chat()">Send</button>
    </div>
    <script>
        const log = document.getElementById('log');
        const params = new URLSearchParams(location.search);
        if (params.get('room')) { document.getElementById('room').value = params.get('room'); }
        const scheme = location.protocol === 'https:' ? 'wss://' : 'ws://';
        const ws = new WebSocket(scheme + location.host + '/ws');
        let typingTimer = null;

        function line(text, cls) {
            const el = document.createElement('div');
            el.className = cls || '';
            el.textContent = text;
            log.appendChild(el);
            log.scrollTop = log.scrollHeight;
        }
        function send(event, data) {
            ws.send(JSON.stringify(data === undefined ? { event } : { event, data }));
        }
        function join() {
            send('join', { username: document.getElementById('username').value, room: document.getElementById('room').value });
        }
        function chat() {
            const input = document.getElementById('message');
            if (input.value.trim() === '') { return; }
            send('chat_message', { message: input.value });
            send('typing', { isTyping: false });
            input.value = '';
        }
        function typing() {
            send('typing', { isTyping: true });
            clearTimeout(typingTimer);
            typingTimer = setTimeout(() => send('typing', { isTyping: false }), 1000);
        }
        function show(m) {
            if (m.type === 'system') { line(m.message, 'system'); return; }
            line('[' + m.timestamp + '] ' + m.username + ': ' + m.message, 'user');
        }
        ws.onopen = () => line('connected', 'system');
        ws.onclose = () => line('disconnected', 'system');
        ws.onmessage = (e) => {
            const env = JSON.parse(e.data);
            switch (env.event) {
            case 'message': show(env.data); break;
            case 'recent_messages': env.data.forEach(show); break;
            case 'user_list': line('users: ' + env.data.map(u => u.username).join(', '), 'system'); break;
            case 'room_list': line('rooms: ' + env.data.map(r => r.name + ' (' + r.userCount + ')').join(', '), 'system'); break;
            case 'user_typing': line(env.data.username + (env.data.isTyping ? ' is typing...' : ' stopped typing'), 'system'); break;
            }
        };
        document.getElementById('message').addEventListener('keypress', (e) => { if (e.key === 'Enter') { chat(); } });
    </script>
</body>
</html>`
