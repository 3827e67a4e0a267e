// Package browser drives the provider's hosted checkout in a real page.
package browser

import (
	"coin-checkout/internal/loader"
	"coin-checkout/internal/relay"
	"context"
	"encoding/json"
	"sync"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/playwright-community/playwright-go"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// CheckoutGlobal is the constructor the provider's script defines.
const CheckoutGlobal = "Razorpay"

const eventBinding = "__coinCheckoutEvent"

const injectScriptJS = `({ id, src }) => {
  window.__coinScripts = window.__coinScripts || {};
  window.__coinResolvers = window.__coinResolvers || {};
  const el = document.createElement("script");
  el.id = id;
  el.src = src;
  el.async = true;
  window.__coinScripts[id] = new Promise((resolve) => {
    window.__coinResolvers[id] = resolve;
    el.onload = () => resolve("");
    el.onerror = () => resolve("failed to load " + src);
  });
  document.head.appendChild(el);
}`

const awaitScriptJS = `(id) => window.__coinScripts[id]`

const removeScriptJS = `(id) => {
  const el = document.getElementById(id);
  if (el) el.remove();
  const resolve = window.__coinResolvers && window.__coinResolvers[id];
  if (resolve) resolve("script removed");
}`

const hasGlobalJS = `(name) => typeof window[name] !== "undefined"`

const openCheckoutJS = `({ id, options }) => {
  const opts = JSON.parse(options);
  const emit = (event, a, b, c) => window.` + eventBinding + `(id, event, a || "", b || "", c || "");
  opts.handler = (r) => emit("success", r.razorpay_payment_id, r.razorpay_order_id, r.razorpay_signature);
  opts.modal = { ondismiss: () => emit("dismiss") };
  const rzp = new Razorpay(opts);
  rzp.on("payment.failed", (r) => emit("failed", (r && r.error && r.error.description) || "Payment failed"));
  rzp.open();
}`

// Session owns a browser with one page that hosts the checkout.
type Session struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	page    playwright.Page
	logger  *zap.Logger

	mu      sync.Mutex
	pending map[string]relay.CheckoutHandlers
}

func Launch(headless bool, pageURL string, logger *zap.Logger) (*Session, error) {
	pw, err := playwright.Run()
	if err != nil {
		return nil, errors.Wrap(err, "start playwright")
	}
	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(headless),
	})
	if err != nil {
		return nil, multierr.Append(errors.Wrap(err, "launch chromium"), pw.Stop())
	}
	s := &Session{pw: pw, browser: browser, logger: logger, pending: map[string]relay.CheckoutHandlers{}}

	s.page, err = browser.NewPage()
	if err != nil {
		return nil, multierr.Append(errors.Wrap(err, "open page"), s.Close())
	}
	if err := s.page.ExposeFunction(eventBinding, s.dispatch); err != nil {
		return nil, multierr.Append(errors.Wrap(err, "expose checkout binding"), s.Close())
	}
	if pageURL != "" {
		if _, err := s.page.Goto(pageURL); err != nil {
			return nil, multierr.Append(errors.Wrapf(err, "goto %s", pageURL), s.Close())
		}
	}
	return s, nil
}

func (s *Session) Close() error {
	return multierr.Combine(s.browser.Close(), s.pw.Stop())
}

// Host returns the page as a script host for the loader.
func (s *Session) Host() loader.ScriptHost { return pageHost{page: s.page} }

// Checkout returns the page as the relay's checkout widget.
func (s *Session) Checkout() relay.Checkout { return s }

func (s *Session) Open(ctx context.Context, opts relay.CheckoutOptions, h relay.CheckoutHandlers) error {
	raw, err := json.Marshal(opts)
	if err != nil {
		return errors.Wrap(err, "marshal checkout options")
	}
	id := uuid.NewString()
	s.mu.Lock()
	s.pending[id] = h
	s.mu.Unlock()

	if _, err := s.page.Evaluate(openCheckoutJS, map[string]interface{}{"id": id, "options": string(raw)}); err != nil {
		s.mu.Lock()
		delete(s.pending, id)
		s.mu.Unlock()
		return errors.Wrap(err, "open checkout")
	}
	return nil
}

func (s *Session) dispatch(args ...interface{}) interface{} {
	str := func(i int) string {
		if i >= len(args) {
			return ""
		}
		v, _ := args[i].(string)
		return v
	}
	id, event := str(0), str(1)

	terminal := event == "success" || event == "dismiss" || event == "failed"
	s.mu.Lock()
	h, ok := s.pending[id]
	if ok && terminal {
		delete(s.pending, id)
	}
	s.mu.Unlock()
	if !ok {
		s.logger.Warn("checkout event for unknown attempt", zap.String("attempt", id), zap.String("event", event))
		return nil
	}

	switch event {
	case "success":
		h.OnSuccess(str(2), str(3), str(4))
	case "dismiss":
		h.OnDismiss()
	case "failed":
		h.OnFailed(str(2))
	default:
		s.logger.Warn("unknown checkout event", zap.String("event", event))
	}
	return nil
}

type pageHost struct {
	page playwright.Page
}

func (h pageHost) HasGlobal(_ context.Context, name string) (bool, error) {
	v, err := h.page.Evaluate(hasGlobalJS, name)
	if err != nil {
		return false, errors.Wrap(err, "check global")
	}
	ok, _ := v.(bool)
	return ok, nil
}

func (h pageHost) InjectScript(_ context.Context, src string) (loader.Script, error) {
	id := "coin-checkout-" + uuid.NewString()[:8]
	if _, err := h.page.Evaluate(injectScriptJS, map[string]interface{}{"id": id, "src": src}); err != nil {
		return nil, errors.Wrap(err, "inject script")
	}
	s := &pageScript{page: h.page, id: id, loaded: make(chan error, 1)}
	go s.await()
	return s, nil
}

type pageScript struct {
	page   playwright.Page
	id     string
	loaded chan error
}

func (s *pageScript) await() {
	v, err := s.page.Evaluate(awaitScriptJS, s.id)
	if err != nil {
		s.loaded <- errors.Wrap(err, "await script")
		return
	}
	if msg, _ := v.(string); msg != "" {
		s.loaded <- errors.New(msg)
		return
	}
	s.loaded <- nil
}

func (s *pageScript) Loaded() <-chan error { return s.loaded }

func (s *pageScript) Remove(context.Context) error {
	if _, err := s.page.Evaluate(removeScriptJS, s.id); err != nil {
		return errors.Wrap(err, "remove script")
	}
	return nil
}
