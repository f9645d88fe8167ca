package zermelo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/adiazny/zermelo-lambda/internal/pkg/roster"
	"github.com/sirupsen/logrus"
)

const (
	appointmentsEndpoint = "api/v3/appointments"
	studentsEndpoint     = "api/v3/studentsindepartments"
	contractsEndpoint    = "api/v3/contracts"

	authorizationHeaderKey = "Authorization"
	bearerPrefix           = "Bearer "

	// MaxScheduleWindow is the widest appointment window in seconds (62 days).
	MaxScheduleWindow = 5356800

	DefaultAppointmentTypes  = "lesson,exam,oralExam,activity,talk,mixed,meeting,interlude"
	DefaultAppointmentFields = "id,appointmentInstance,start,end,startTimeSlotName,endTimeSlotName,locations,teachers,subjects"
	DefaultStudentFields     = "student,firstName,prefix,lastName,mainGroupName,mainGroup,mentorGroup,departmentOfBranch"
	DefaultTeacherFields     = "employee,firstName,prefix,lastName"
)

type Config struct {
	BaseURL  string
	APIToken string
}

type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

type Client struct {
	Log    *logrus.Entry
	Config Config
	HTTP   HTTPClient
}

// AppointmentQuery selects the appointments of one user. Start and End are
// unix seconds. Empty Type or Fields fall back to the defaults.
type AppointmentQuery struct {
	User   string
	Start  roster.Int
	End    roster.Int
	Type   string
	Fields string
}

type StudentQuery struct {
	StudentID          string
	SchoolInSchoolYear roster.Int
	Fields             string
}

type TeacherQuery struct {
	TeacherID          string
	SchoolInSchoolYear roster.Int
	Fields             string
}

// GetScheduleAppointments returns the appointments of q.User between
// q.Start and q.End. The window may not be inverted or exceed
// MaxScheduleWindow.
func (client *Client) GetScheduleAppointments(ctx context.Context, q AppointmentQuery) (json.RawMessage, error) {
	if q.User == "" || !q.Start.Valid || !q.End.Valid {
		return nil, ErrMissingParameters
	}

	start, end := q.Start.Value, q.End.Value

	// the unsigned difference is only read once start <= end holds, so it cannot wrap
	if start > end || uint64(end)-uint64(start) > MaxScheduleWindow {
		return nil, ErrScheduleInvalidDate
	}

	params := queryParams{}
	params.add("valid", "true")
	params.add("cancelled", "false")
	params.add("user", q.User)
	params.add("start", q.Start.String())
	params.add("end", q.End.String())
	params.add("type", withDefault(q.Type, DefaultAppointmentTypes))
	params.add("fields", withDefault(q.Fields, DefaultAppointmentFields))

	return client.get(ctx, appointmentsEndpoint, params)
}

// GetStudentDetails returns the department records of one student in the
// given school year.
func (client *Client) GetStudentDetails(ctx context.Context, q StudentQuery) (json.RawMessage, error) {
	if q.StudentID == "" || !q.SchoolInSchoolYear.Valid {
		return nil, ErrMissingParameters
	}

	params := queryParams{}
	params.add("schoolInSchoolYear", q.SchoolInSchoolYear.String())
	params.add("fields", withDefault(q.Fields, DefaultStudentFields))
	params.add("student", q.StudentID)

	return client.get(ctx, studentsEndpoint, params)
}

// GetTeacherDetails returns the contracts of one employee in the given
// school year.
func (client *Client) GetTeacherDetails(ctx context.Context, q TeacherQuery) (json.RawMessage, error) {
	if q.TeacherID == "" || !q.SchoolInSchoolYear.Valid {
		return nil, ErrMissingParameters
	}

	params := queryParams{}
	params.add("schoolInSchoolYear", q.SchoolInSchoolYear.String())
	params.add("fields", withDefault(q.Fields, DefaultTeacherFields))
	params.add("employee", q.TeacherID)

	return client.get(ctx, contractsEndpoint, params)
}

// get issues an authenticated GET and returns the response field of the
// decoded envelope. A body without a response field yields nil.
func (client *Client) get(ctx context.Context, endpoint string, params queryParams) (json.RawMessage, error) {
	apiEndpoint := fmt.Sprintf("%s/%s?%s",
		strings.TrimRight(client.Config.BaseURL, "/"),
		endpoint,
		params.encode(),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiEndpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("error creating http request %w", err)
	}

	req.Header.Add(authorizationHeaderKey, bearerPrefix+client.Config.APIToken)

	log := client.logger().WithField("endpoint", endpoint)
	log.Debug("performing zermelo request")

	resp, err := client.HTTP.Do(req)
	if err != nil {
		log.WithError(err).Warn("zermelo request failed")
		return nil, &Error{Code: CodeUpstreamUnavailable, Err: fmt.Errorf("error performing http request %w", err)}
	}

	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Code: CodeUpstreamUnavailable, Err: fmt.Errorf("error reading response body %w", err)}
	}

	log = log.WithField("status", resp.StatusCode)

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		log.Warn("zermelo returned an error status")
		return nil, &Error{Code: CodeUpstreamError, Status: resp.StatusCode}
	}

	envelope := &roster.Envelope{}

	err = json.Unmarshal(body, envelope)
	if err != nil {
		return nil, &Error{Code: CodeUpstreamInvalidResponse, Err: fmt.Errorf("error unmarshalling http response body %w", err)}
	}

	log.Debug("zermelo request succeeded")

	return envelope.Response, nil
}

func (client *Client) logger() *logrus.Entry {
	if client.Log == nil {
		return logrus.NewEntry(logrus.StandardLogger())
	}

	return client.Log
}

type queryParam struct {
	key, value string
}

// queryParams keeps insertion order when encoded, unlike url.Values.
type queryParams []queryParam

func (p *queryParams) add(key, value string) {
	*p = append(*p, queryParam{key: key, value: value})
}

func (p queryParams) encode() string {
	var buf strings.Builder

	for i, param := range p {
		if i > 0 {
			buf.WriteByte('&')
		}
		buf.WriteString(url.QueryEscape(param.key))
		buf.WriteByte('=')
		buf.WriteString(url.QueryEscape(param.value))
	}

	return buf.String()
}

func withDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}

	return value
}
