package client

import (
	"fmt"
	"mime"

	"github.com/roach88/sparql-go/sparql"
)

// decodeResult dispatches on the response media type and checks that the
// decoded shape matches the query form.
func decodeResult(form sparql.Form, contentType string, body []byte) (*sparql.Result, error) {
	if contentType == "" {
		return nil, &sparql.ProtocolError{
			Op:      "decode",
			Message: "response carries no Content-Type",
		}
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return nil, &sparql.ProtocolError{
			Op:          "decode",
			ContentType: contentType,
			Message:     "unparseable Content-Type",
			Err:         err,
		}
	}

	var result *sparql.Result
	switch mediaType {
	case "application/sparql-results+json":
		result, err = decodeJSON(body)
	case "application/sparql-results+xml":
		result, err = decodeXML(body)
	case "text/csv":
		result, err = decodeCSV(body)
	case "text/tab-separated-values":
		result, err = decodeTSV(body)
	case "text/turtle", "application/n-triples", "text/plain":
		result, err = decodeGraph(body)
	case "application/ld+json":
		result, err = decodeJSONLD(body)
	default:
		return nil, &sparql.ProtocolError{
			Op:          "decode",
			ContentType: contentType,
			Message:     "unsupported result content type",
		}
	}
	if err != nil {
		return nil, err
	}

	if expected := expectedKind(form); result.Kind() != expected {
		return nil, &sparql.ProtocolError{
			Op:          "decode",
			ContentType: contentType,
			Message: fmt.Sprintf("%s query produced a %s result, want %s",
				form, result.Kind(), expected),
		}
	}
	return result, nil
}

func expectedKind(form sparql.Form) sparql.ResultKind {
	switch form {
	case sparql.FormAsk:
		return sparql.KindBoolean
	case sparql.FormConstruct, sparql.FormDescribe:
		return sparql.KindGraph
	default:
		return sparql.KindSolutions
	}
}

func decodeErr(contentType, message string, err error) *sparql.ProtocolError {
	return &sparql.ProtocolError{
		Op:          "decode",
		ContentType: contentType,
		Message:     message,
		Err:         err,
	}
}
