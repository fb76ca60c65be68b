package bridge

import "fmt"

// EventName is the DOM CustomEvent the web app listens on for messages
// delivered from the shell.
const EventName = "stride:native"

// DeliveryScript returns a self-executing statement that reconstructs msg
// inside the embedded document and dispatches it on the DOM event system.
// The payload is JSON-encoded exactly once and embedded verbatim; message
// fields never reach the script body through string concatenation.
func DeliveryScript(m HostMessage) (string, error) {
	encoded, err := Encode(m)
	if err != nil {
		return "", err
	}
	return `(function(){var m=` + encoded +
		`;window.dispatchEvent(new CustomEvent("` + EventName + `",{detail:m}));})();`, nil
}

// ScrollTopScript asks the embedded document to return to its top. Paired
// with the tab-root reset so a re-tapped tab lands where it started.
const ScrollTopScript = `window.scrollTo({top:0,behavior:"smooth"});`

// BootstrapScript builds the script injected into a view before its
// content loads. It marks the document as embedded so the web app
// suppresses its own chrome, disables pinch-zoom and multi-touch
// gestures, wraps the history API so client-side navigation reaches the
// shell as ROUTE_CHANGED, and posts CONTENT_READY once the full page has
// loaded rather than on first script execution.
func BootstrapScript(tab string) string {
	return fmt.Sprintf(bootstrapTemplate, tab, Version)
}

const bootstrapTemplate = `(function () {
  if (window.__strideShell) { return; }

  function send(raw) {
    if (window.__strideSend) { return window.__strideSend(raw); }
    if (window.webkit && window.webkit.messageHandlers && window.webkit.messageHandlers.stride) {
      return window.webkit.messageHandlers.stride.postMessage(raw);
    }
    if (window.StrideAndroid && window.StrideAndroid.postMessage) {
      return window.StrideAndroid.postMessage(raw);
    }
  }

  var shell = { tab: %q, v: %d };
  shell.post = function (msg) {
    msg.v = shell.v;
    send(JSON.stringify(msg));
  };
  window.__strideShell = shell;

  document.documentElement.setAttribute("data-stride-embedded", "true");
  document.documentElement.setAttribute("data-stride-tab", shell.tab);

  document.addEventListener("gesturestart", function (e) { e.preventDefault(); }, { passive: false });
  document.addEventListener("touchmove", function (e) {
    if (e.touches.length > 1) { e.preventDefault(); }
  }, { passive: false });
  document.addEventListener("DOMContentLoaded", function () {
    var meta = document.createElement("meta");
    meta.name = "viewport";
    meta.content = "width=device-width, initial-scale=1, maximum-scale=1, user-scalable=no";
    document.head.appendChild(meta);
  });

  function routeChanged() {
    shell.post({ type: "ROUTE_CHANGED", path: location.pathname });
  }
  var push = history.pushState;
  history.pushState = function () {
    push.apply(history, arguments);
    routeChanged();
  };
  var replace = history.replaceState;
  history.replaceState = function () {
    replace.apply(history, arguments);
    routeChanged();
  };
  window.addEventListener("popstate", routeChanged);

  window.addEventListener("load", function () {
    shell.post({ type: "CONTENT_READY", path: location.pathname });
  });
})();`
