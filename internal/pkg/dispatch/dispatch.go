// Package dispatch turns lambda invocation events into Zermelo queries and
// renders their outcome, including the symbolic error codes, as a response.
package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/adiazny/zermelo-lambda/internal/pkg/roster"
	"github.com/adiazny/zermelo-lambda/internal/pkg/zermelo"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/sirupsen/logrus"
)

const (
	OperationAppointments = "appointments"
	OperationStudent      = "student"
	OperationTeacher      = "teacher"

	CodeInvalidOperation = "INVALID_OPERATION"
	CodeInternal         = "INTERNAL_ERROR"
)

type Querier interface {
	GetScheduleAppointments(ctx context.Context, q zermelo.AppointmentQuery) (json.RawMessage, error)
	GetStudentDetails(ctx context.Context, q zermelo.StudentQuery) (json.RawMessage, error)
	GetTeacherDetails(ctx context.Context, q zermelo.TeacherQuery) (json.RawMessage, error)
}

type Publisher interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

type Request struct {
	Operation          string     `json:"operation"`
	User               string     `json:"user,omitempty"`
	Start              roster.Int `json:"start"`
	End                roster.Int `json:"end"`
	Type               string     `json:"type,omitempty"`
	Fields             string     `json:"fields,omitempty"`
	StudentID          string     `json:"studentId,omitempty"`
	TeacherID          string     `json:"teacherId,omitempty"`
	SchoolInSchoolYear roster.Int `json:"schoolInSchoolYear"`
}

type Response struct {
	StatusCode int             `json:"statusCode"`
	Error      string          `json:"error,omitempty"`
	Response   json.RawMessage `json:"response,omitempty"`
}

type notification struct {
	Operation string          `json:"operation"`
	Response  json.RawMessage `json:"response"`
}

// Dispatcher runs one query per request. SNS and TopicARN are optional;
// without them results are only returned.
type Dispatcher struct {
	Log      *logrus.Entry
	Zermelo  Querier
	SNS      Publisher
	TopicARN string
}

// Handle never returns query failures as an error: they are rendered into
// the Response. The error result is reserved for failed notifications.
func (d *Dispatcher) Handle(ctx context.Context, req Request) (Response, error) {
	log := d.logger().WithField("operation", req.Operation)

	var (
		payload json.RawMessage
		err     error
	)

	switch req.Operation {
	case OperationAppointments:
		payload, err = d.Zermelo.GetScheduleAppointments(ctx, zermelo.AppointmentQuery{
			User:   req.User,
			Start:  req.Start,
			End:    req.End,
			Type:   req.Type,
			Fields: req.Fields,
		})
	case OperationStudent:
		payload, err = d.Zermelo.GetStudentDetails(ctx, zermelo.StudentQuery{
			StudentID:          req.StudentID,
			SchoolInSchoolYear: req.SchoolInSchoolYear,
			Fields:             req.Fields,
		})
	case OperationTeacher:
		payload, err = d.Zermelo.GetTeacherDetails(ctx, zermelo.TeacherQuery{
			TeacherID:          req.TeacherID,
			SchoolInSchoolYear: req.SchoolInSchoolYear,
			Fields:             req.Fields,
		})
	default:
		log.Warn("unknown operation")
		return Response{StatusCode: http.StatusBadRequest, Error: CodeInvalidOperation}, nil
	}

	if err != nil {
		return errorResponse(log, err), nil
	}

	if d.SNS != nil && d.TopicARN != "" {
		if err := d.publish(ctx, req.Operation, payload); err != nil {
			log.WithError(err).Error()
			return Response{}, err
		}
	}

	return Response{StatusCode: http.StatusOK, Response: payload}, nil
}

func (d *Dispatcher) publish(ctx context.Context, operation string, payload json.RawMessage) error {
	msg, err := json.Marshal(notification{Operation: operation, Response: payload})
	if err != nil {
		return fmt.Errorf("error marshalling notification %w", err)
	}

	topicMsg := string(msg)

	input := &sns.PublishInput{
		Message:  &topicMsg,
		TopicArn: &d.TopicARN,
	}

	_, err = d.SNS.Publish(ctx, input)
	if err != nil {
		return fmt.Errorf("error publishing to AWS SNS topic %s: %w", d.TopicARN, err)
	}

	return nil
}

func (d *Dispatcher) logger() *logrus.Entry {
	if d.Log == nil {
		return logrus.NewEntry(logrus.StandardLogger())
	}

	return d.Log
}

func errorResponse(log *logrus.Entry, err error) Response {
	var zerr *zermelo.Error
	if errors.As(err, &zerr) {
		log.WithError(err).WithField("code", zerr.Code).Info("query rejected")
		return Response{StatusCode: zerr.HTTPStatus(), Error: string(zerr.Code)}
	}

	log.WithError(err).Error("query failed")

	return Response{StatusCode: http.StatusInternalServerError, Error: CodeInternal}
}
