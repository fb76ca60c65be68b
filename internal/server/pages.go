package server

const errorPageHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Stride</title>
<style>
  body { background: #0f1115; color: #e6e8ec; font-family: -apple-system, system-ui, sans-serif;
         display: flex; align-items: center; justify-content: center; height: 100vh; margin: 0; }
  .card { text-align: center; max-width: 320px; padding: 24px; }
  h1 { font-size: 20px; margin: 0 0 8px; }
  p { color: #8b919c; font-size: 14px; margin: 0 0 24px; }
  button { background: #3d6bff; color: #fff; border: 0; border-radius: 8px;
           padding: 12px 32px; font-size: 15px; cursor: pointer; }
  button:disabled { opacity: 0.5; }
</style>
</head>
<body>
<div class="card">
  <h1>Can&rsquo;t reach Stride</h1>
  <p>Check your connection and try again.</p>
  <button id="retry">Retry</button>
</div>
<script>
  var tab = %q;
  var token = %q;
  document.getElementById("retry").addEventListener("click", function () {
    this.disabled = true;
    fetch("/error/retry", {
      method: "POST",
      headers: { "Content-Type": "application/json" },
      body: JSON.stringify({ tab: tab, token: token })
    }).catch(function () {});
  });
</script>
</body>
</html>
`

const handoffPageHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Stride &middot; Open on your phone</title>
<style>
  body { background: #0f1115; color: #e6e8ec; font-family: -apple-system, system-ui, sans-serif;
         display: flex; align-items: center; justify-content: center; height: 100vh; margin: 0; }
  .card { text-align: center; padding: 24px; }
  img { border-radius: 12px; background: #fff; padding: 12px; }
  h1 { font-size: 18px; margin: 16px 0 4px; }
  p { color: #8b919c; font-size: 13px; margin: 0; word-break: break-all; }
</style>
</head>
<body>
<div class="card">
  <img src="/handoff/qr?path=%[2]s" alt="QR code" width="256" height="256">
  <h1>Scan to continue on your phone</h1>
  <p>%[1]s</p>
</div>
</body>
</html>
`

const consolePageHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Stride bridge console</title>
<style>
  body { background: #0f1115; color: #e6e8ec; font-family: ui-monospace, monospace;
         font-size: 12px; margin: 0; padding: 12px; }
  .row { padding: 2px 0; border-bottom: 1px solid #1c1f26; white-space: pre-wrap; }
  .content { color: #7dd3a0; }
  .host { color: #7db5ff; }
  .meta { color: #8b919c; }
</style>
</head>
<body>
<div id="log"></div>
<script>
  var log = document.getElementById("log");
  var ws = new WebSocket("ws://" + location.host + "/console/ws");
  ws.onmessage = function (ev) {
    var e = JSON.parse(ev.data);
    var row = document.createElement("div");
    row.className = "row " + e.direction;
    var meta = document.createElement("span");
    meta.className = "meta";
    meta.textContent = e.at + " [" + e.tab + "] " + (e.direction === "content" ? "→ " : "← ");
    row.appendChild(meta);
    row.appendChild(document.createTextNode(e.payload));
    log.appendChild(row);
    window.scrollTo(0, document.body.scrollHeight);
  };
</script>
</body>
</html>
`
