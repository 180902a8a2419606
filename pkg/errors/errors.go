// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Archigraph Contributors

package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/samber/oops"
)

// Code is the machine-readable identifier for an error. The final
// dot-segment is the reason and drives classification and HTTP mapping.
type Code string

const (
	CodeStoreNodeNotFound       Code = "store.node.get.not_found"
	CodeStoreEdgeNotFound       Code = "store.edge.get.not_found"
	CodeStoreQueryConflict      Code = "store.query.conflict"
	CodeStoreQueryInvalidInput  Code = "store.query.invalid_input"
	CodeStoreUnavailable        Code = "store.backend.unavailable"
	CodeStoreFailure            Code = "store.backend.failure"
	CodeStoreBackendUnsupported Code = "store.backend.unsupported"

	CodeGraphDocumentInvalid Code = "graph.ingest.document.invalid_input"
	CodeGraphIngestFailure   Code = "graph.ingest.failure"
	CodeGraphSystemNotFound  Code = "graph.system.not_found"

	CodeDiffSystemNotFound  Code = "diff.system.not_found"
	CodeDiffVersionInvalid  Code = "diff.version.invalid_input"
	CodeDiffHistoryMissing  Code = "diff.history.invalid_input"
	CodeDiffTraverseFailure Code = "diff.traverse.failure"

	CodeViewSystemNotFound      Code = "view.system.not_found"
	CodeViewContainerNotFound   Code = "view.container.not_found"
	CodeViewEnvironmentNotFound Code = "view.environment.not_found"
	CodeViewKindInvalid         Code = "view.kind.invalid_input"
	CodeViewRankInvalid         Code = "view.rank_direction.invalid_input"
	CodeViewAssembleFailure     Code = "view.assemble.failure"

	CodeClosureSystemNotFound Code = "closure.system.not_found"
	CodeClosureNodeNotFound   Code = "closure.deployment_node.not_found"
	CodeClosureNodeAmbiguous  Code = "closure.deployment_node.conflict"

	CodeJournalRecordFailure Code = "journal.record.failure"
	CodeJournalQueryFailure  Code = "journal.query.failure"

	CodeConfigLoadReadFailure      Code = "config.load.read.failure"
	CodeConfigParseInvalidFormat   Code = "config.parse.invalid_format"
	CodeConfigValidateInvalidValue Code = "config.validate.invalid_value"

	CodeServerRequestInvalid  Code = "server.request.invalid_input"
	CodeServerEntityNotFound  Code = "server.entity.not_found"
	CodeServerInternalFailure Code = "server.internal.failure"
	CodeServerStartFailure    Code = "server.start.failure"
	CodeServerShutdownFailure Code = "server.shutdown.failure"

	CodeCLIServerNotRunning Code = "cli.server.unavailable"
	CodeCLIRequestFailure   Code = "cli.request.failure"
	CodeCLIResponseInvalid  Code = "cli.response.invalid"
	CodeCLISetupFailure     Code = "cli.setup.failure"
	CodeCLIInputInvalid     Code = "cli.input.invalid"
)

// Attr is a structured key/value context attached to an error.
type Attr struct {
	Key   string
	Value any
}

// Field creates a structured error field.
func Field(key string, value any) Attr {
	return Attr{Key: key, Value: value}
}

func FieldCMDB(value string) Attr {
	return Field("cmdb", value)
}

func FieldGraphTag(value string) Attr {
	return Field("graph_tag", value)
}

func FieldNode(value string) Attr {
	return Field("node", value)
}

func New(code Code, msg string, fields ...Attr) error {
	return oops.Code(code).With(flatten(fields)...).New(msg)
}

func Errorf(code Code, format string, args ...any) error {
	return oops.Code(code).Errorf(format, args...)
}

func Wrap(err error, code Code, msg string, fields ...Attr) error {
	if err == nil {
		return nil
	}

	return oops.Code(code).With(flatten(fields)...).Wrapf(err, "%s", msg)
}

func Wrapf(err error, code Code, format string, args ...any) error {
	if err == nil {
		return nil
	}

	return oops.Code(code).Wrapf(err, format, args...)
}

// With adds structured fields to an existing error chain.
func With(err error, fields ...Attr) error {
	if err == nil {
		return nil
	}

	code := CodeOf(err)
	if code == "" {
		code = CodeServerInternalFailure
	}

	return oops.Code(code).With(flatten(fields)...).Wrap(err)
}

func CodeOf(err error) Code {
	if err == nil {
		return ""
	}

	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return ""
	}

	if code, ok := oopsErr.Code().(Code); ok {
		return code
	}

	if code, ok := oopsErr.Code().(string); ok {
		return Code(code)
	}

	return Code(fmt.Sprintf("%v", oopsErr.Code()))
}

func FieldsOf(err error) map[string]any {
	if err == nil {
		return nil
	}

	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return nil
	}

	return oopsErr.Context()
}

func HasCode(err error, code Code) bool {
	if err == nil {
		return false
	}
	return CodeOf(err) == code
}

func IsNotFound(err error) bool {
	return reason(CodeOf(err)) == "not_found"
}

func IsConflict(err error) bool {
	return reason(CodeOf(err)) == "conflict"
}

func IsInvalidInput(err error) bool {
	r := reason(CodeOf(err))
	return r == "invalid" || r == "invalid_input" || r == "invalid_value" || r == "invalid_format"
}

// IsUnavailable reports a retryable-by-caller store outage.
func IsUnavailable(err error) bool {
	return reason(CodeOf(err)) == "unavailable"
}

func HTTPStatus(err error) int {
	switch {
	case IsNotFound(err):
		return http.StatusNotFound
	case IsConflict(err):
		return http.StatusConflict
	case IsInvalidInput(err):
		return http.StatusBadRequest
	case IsUnavailable(err):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func Join(errs ...error) error {
	return oops.Code(CodeServerInternalFailure).Wrap(stderrors.Join(errs...))
}

func flatten(fields []Attr) []any {
	pairs := make([]any, 0, len(fields)*2)
	for _, field := range fields {
		if field.Key == "" {
			continue
		}
		pairs = append(pairs, field.Key, field.Value)
	}
	return pairs
}

func reason(code Code) string {
	if code == "" {
		return ""
	}

	raw := string(code)
	idx := strings.LastIndex(raw, ".")
	if idx == -1 || idx == len(raw)-1 {
		return raw
	}
	return raw[idx+1:]
}
