package sportrick

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	"go.uber.org/zap"

	"github.com/example/sport-scheduler/internal/catalog"
)

const defaultUA = "Mozilla/5.0 (X11; Linux x86_64) sportsched/1.0"

// Credentials for the site's login form. OTPAuthURL is the otpauth://totp/…
// URL holding the TOTP secret.
type Credentials struct {
	Username   string `json:"username"`
	Password   string `json:"password"`
	OTPAuthURL string `json:"otpauth_url"`
}

// Client implements SessionManager against the live site.
type Client struct {
	base    string
	creds   Credentials
	timeout time.Duration
	logger  *zap.Logger

	// One login in flight at a time, shared by instant and batch paths.
	mu sync.Mutex
}

func NewClient(baseURL string, creds Credentials, timeout time.Duration, logger *zap.Logger) *Client {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		base:    strings.TrimRight(baseURL, "/"),
		creds:   creds,
		timeout: timeout,
		logger:  logger,
	}
}

// WithSession logs in, runs fn with the authenticated session and logs out
// on every exit path. Login failures surface as ErrSessionAcquisition.
func (c *Client) WithSession(ctx context.Context, fn func(Session) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	jar, err := cookiejar.New(nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSessionAcquisition, err)
	}
	s := &httpSession{
		hc:     &http.Client{Jar: jar, Timeout: c.timeout},
		base:   c.base,
		logger: c.logger,
	}

	if err := s.login(ctx, c.creds); err != nil {
		c.logger.Error("login failed", zap.Error(err))
		return fmt.Errorf("%w: %v", ErrSessionAcquisition, err)
	}
	defer s.logout(ctx)

	return fn(s)
}

type httpSession struct {
	hc     *http.Client
	base   string
	logger *zap.Logger
}

func (s *httpSession) login(ctx context.Context, creds Credentials) error {
	if creds.Username == "" || creds.Password == "" {
		return fmt.Errorf("missing credentials")
	}

	// Prime cookies and the antiforgery token off the login page.
	page, err := s.get(ctx, "/Account/Login")
	if err != nil {
		return err
	}
	token := antiforgeryToken(page)

	form := url.Values{
		"Username":                   {creds.Username},
		"Password":                   {creds.Password},
		"__RequestVerificationToken": {token},
	}
	if _, err := s.postForm(ctx, "/Account/Login", form); err != nil {
		return err
	}

	code, err := currentOTP(creds.OTPAuthURL)
	if err != nil {
		return err
	}
	otpForm := url.Values{
		"Otp":                        {code},
		"__RequestVerificationToken": {token},
	}
	body, err := s.postForm(ctx, "/Account/LoginOtp", otpForm)
	if err != nil {
		return err
	}
	if strings.Contains(body, "Accedi al tuo account") {
		return fmt.Errorf("still on login page after OTP")
	}

	s.logger.Debug("login ok")
	return nil
}

func (s *httpSession) logout(ctx context.Context) {
	if _, err := s.get(ctx, "/Account/Logout"); err != nil {
		s.logger.Debug("logout failed", zap.Error(err))
	}
}

// FetchSnapshot walks the course and open-access schedule pages and
// returns every slot row it can parse.
func (s *httpSession) FetchSnapshot(ctx context.Context) ([]catalog.RawRow, error) {
	var rows []catalog.RawRow

	coursePage, err := s.get(ctx, "/Booking/Calendar")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrScrape, err)
	}
	parsed, err := ParseSchedule(coursePage, false)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrScrape, err)
	}
	rows = append(rows, parsed...)

	gymPage, err := s.get(ctx, "/Booking/FitCenter")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrScrape, err)
	}
	parsed, err = ParseSchedule(gymPage, true)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrScrape, err)
	}
	rows = append(rows, parsed...)

	s.logger.Info("snapshot fetched", zap.Int("rows", len(rows)))
	return rows, nil
}

// Book reserves the slot occurrence and returns the site's booking id.
func (s *httpSession) Book(ctx context.Context, req BookingRequest) (string, error) {
	section := "/Booking/Calendar"
	if req.OpenAccess {
		section = "/Booking/FitCenter"
	}
	page, err := s.get(ctx, section+"?date="+req.Date.Format("2006-01-02"))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrReservationRejected, err)
	}

	slotID, ok := FindSlotAction(page, req.TimeStart, req.SlotName)
	if !ok {
		return "", fmt.Errorf("%w: no open slot %q at %s on %s",
			ErrReservationRejected, req.SlotName, req.TimeStart, req.Date.Format("2006-01-02"))
	}

	form := url.Values{"slotId": {slotID}, "date": {req.Date.Format("2006-01-02")}}
	body, err := s.postForm(ctx, "/Booking/Reserve", form)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrReservationRejected, err)
	}
	remoteID := bookingConfirmationID(body)
	if remoteID == "" {
		// The site acknowledged without an id; synthesize the stable key
		// used by the bookings list.
		remoteID = fmt.Sprintf("%s_%s_%s",
			req.Date.Format("2006-01-02"),
			strings.ReplaceAll(req.TimeStart, ":", ""),
			strings.ReplaceAll(req.SlotName, " ", "_"))
	}
	return remoteID, nil
}

func (s *httpSession) CancelBooking(ctx context.Context, remoteID string) error {
	form := url.Values{"bookingId": {remoteID}}
	if _, err := s.postForm(ctx, "/Booking/Cancel", form); err != nil {
		return fmt.Errorf("cancel %s: %w", remoteID, err)
	}
	return nil
}

func (s *httpSession) ListBookings(ctx context.Context) ([]RemoteBooking, error) {
	page, err := s.get(ctx, "/Booking/MyBookings")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrScrape, err)
	}
	return ParseBookings(page)
}

func (s *httpSession) get(ctx context.Context, path string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.base+path, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", defaultUA)
	return s.do(req)
}

func (s *httpSession) postForm(ctx context.Context, path string, form url.Values) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.base+path, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", defaultUA)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return s.do(req)
}

func (s *httpSession) do(req *http.Request) (string, error) {
	resp, err := s.hc.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("%s %s: status %d", req.Method, req.URL.Path, resp.StatusCode)
	}
	buf := new(strings.Builder)
	if _, err := io.Copy(buf, resp.Body); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// currentOTP derives the current TOTP code from an otpauth URL, waiting
// out the window edge so the code does not expire mid-submit.
func currentOTP(otpauthURL string) (string, error) {
	key, err := otp.NewKeyFromURL(otpauthURL)
	if err != nil {
		return "", fmt.Errorf("parse otpauth url: %w", err)
	}
	now := time.Now()
	period := int64(key.Period())
	if period == 0 {
		period = 30
	}
	if period-now.Unix()%period < 2 {
		time.Sleep(2 * time.Second)
		now = time.Now()
	}
	return totp.GenerateCode(key.Secret(), now)
}
