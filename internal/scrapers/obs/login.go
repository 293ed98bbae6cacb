package obs

import (
	"context"
	"fmt"
	"obsgrades/internal/components/assert"
	"strings"

	"go.opentelemetry.io/otel/codes"
)

const report_client_login = "client.login"

// login form field names, fixed by the portal
const (
	fieldUsername       = "txtParamT01"
	fieldPassword       = "txtParamT02"
	fieldPasswordAlias  = "txtParamT1"
	fieldSecurityCode   = "txtSecCode"
	fieldEventTarget    = "__EVENTTARGET"
	fieldEventArgument  = "__EVENTARGUMENT"
	fieldScreenWidth    = "txt_scrWidth"
	fieldScreenHeight   = "txt_scrHeight"
	loginButtonControl  = "btnLogin"
	defaultScreenWidth  = "1920"
	defaultScreenHeight = "1080"
)

func loginForm(hidden map[string]string, username, password, code string) map[string]string {
	form := make(map[string]string, len(hidden)+8)
	for k, v := range hidden {
		form[k] = v
	}
	// the page renders its submit button as a hidden field, posting it next to
	// __EVENTTARGET would name the postback target twice
	delete(form, loginButtonControl)

	form[fieldUsername] = username
	form[fieldPassword] = password
	form[fieldPasswordAlias] = password
	form[fieldSecurityCode] = code
	form[fieldEventTarget] = loginButtonControl
	form[fieldEventArgument] = ""
	form[fieldScreenWidth] = defaultScreenWidth
	form[fieldScreenHeight] = defaultScreenHeight
	return form
}

// Login authenticates the session. A wrong password and a wrong captcha code
// look the same to the portal, both return false with a nil error. Errors are
// only returned for transport failures or a failing solver.
func (c *Client) Login(ctx context.Context, username, password string, solver CaptchaSolver) (bool, error) {
	assert.NotNil(solver, "captcha solver")

	ctx, span := tracer.Start(ctx, "client:Login")
	defer span.End()

	loginError := func(err error) (bool, error) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.tel.ReportBroken(report_client_login, err)
		return false, fmt.Errorf("obs scraper: login: %w", err)
	}

	_, doc, err := c.getPage(ctx, c.loginUrl(), nil)
	if err != nil {
		return loginError(err)
	}

	code := ""
	image, err := c.fetchCaptcha(ctx, doc)
	if err != nil {
		return loginError(err)
	}
	if image != nil {
		code, err = solver.SolveCaptcha(ctx, image)
		if err != nil {
			return loginError(fmt.Errorf("solve captcha: %w", err))
		}
		code = strings.TrimSpace(code)
	}

	res, err := c.http.R().
		SetContext(ctx).
		SetFormData(loginForm(HiddenFields(doc), username, password, code)).
		Post(c.loginUrl())
	if err != nil {
		return loginError(fmt.Errorf("submit login form: %w", err))
	}

	landed := finalUrl(res)
	if strings.Contains(landed, loginPage) {
		span.SetStatus(codes.Error, "still on login page")
		c.tel.ReportWarning(report_client_login, fmt.Errorf("still on login page after submit"), username)
		return false, nil
	}

	c.tel.ReportDebug("logged in", username, landed)
	return true, nil
}
