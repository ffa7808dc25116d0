package pb

import (
	"encoding/json"
	"fmt"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/oshokin/safety-monitor/internal/domain/safety"
)

// AlertToStruct converts a domain alert into a Struct with the JSON field names.
func AlertToStruct(alert *safety.Alert) (*structpb.Struct, error) {
	payload, err := json.Marshal(alert)
	if err != nil {
		return nil, fmt.Errorf("encode alert: %w", err)
	}

	var fields map[string]any
	if err = json.Unmarshal(payload, &fields); err != nil {
		return nil, fmt.Errorf("decode alert fields: %w", err)
	}

	message, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, fmt.Errorf("build alert struct: %w", err)
	}

	return message, nil
}

// AlertFromStruct converts a Struct back into a domain alert.
func AlertFromStruct(message *structpb.Struct) (*safety.Alert, error) {
	payload, err := json.Marshal(message.AsMap())
	if err != nil {
		return nil, fmt.Errorf("encode alert struct: %w", err)
	}

	alert := new(safety.Alert)
	if err = json.Unmarshal(payload, alert); err != nil {
		return nil, fmt.Errorf("decode alert: %w", err)
	}

	return alert, nil
}

// AlertsToStruct wraps alerts into {"alerts": [...]}.
func AlertsToStruct(alerts []*safety.Alert) (*structpb.Struct, error) {
	values := make([]any, 0, len(alerts))

	for _, alert := range alerts {
		message, err := AlertToStruct(alert)
		if err != nil {
			return nil, err
		}

		values = append(values, message.AsMap())
	}

	message, err := structpb.NewStruct(map[string]any{"alerts": values})
	if err != nil {
		return nil, fmt.Errorf("build alert list: %w", err)
	}

	return message, nil
}

// AlertsFromStruct unwraps {"alerts": [...]}.
func AlertsFromStruct(message *structpb.Struct) ([]*safety.Alert, error) {
	list := message.GetFields()["alerts"].GetListValue()
	alerts := make([]*safety.Alert, 0, len(list.GetValues()))

	for _, value := range list.GetValues() {
		alert, err := AlertFromStruct(value.GetStructValue())
		if err != nil {
			return nil, err
		}

		alerts = append(alerts, alert)
	}

	return alerts, nil
}
