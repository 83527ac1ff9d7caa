package app

import (
	"strings"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/bft-labs/mongoship/internal/domain"
)

// updateOperatorPrefix starts every key of an update expression.
const updateOperatorPrefix = "$"

// ValidateSettings checks the static configuration of a sink. A literal
// action is validated here once; a templated one is validated per event by
// ValidateAction.
func ValidateSettings(s Settings) error {
	if s.BulkSize > domain.MaxBulkSize {
		return domain.NewConfigError(domain.ErrBulkSizeTooLarge,
			"Bulk size must be lower than '%d', currently '%d'", domain.MaxBulkSize, s.BulkSize)
	}
	if s.Bulk {
		if s.BulkSize <= 0 {
			return domain.NewConfigError(domain.ErrInvalidBulkSettings,
				"Bulk size must be positive, currently '%d'", s.BulkSize)
		}
		if s.BulkInterval <= 0 {
			return domain.NewConfigError(domain.ErrInvalidBulkSettings,
				"Bulk interval must be positive, currently '%s'", s.BulkInterval)
		}
	}

	for _, el := range s.UpdateExpressions {
		if !strings.HasPrefix(el.Key, updateOperatorPrefix) {
			return domain.NewConfigError(domain.ErrInvalidUpdateOperator,
				"Update expressions contain key '%s' that does not start with '%s'", el.Key, updateOperatorPrefix)
		}
	}

	if s.DynamicAction() {
		return nil
	}
	action, err := domain.ParseAction(s.Action)
	if err != nil {
		return err
	}
	return ValidateAction(action, s.FilterTemplate(), s.UpdateExpressions)
}

// ValidateAction checks that the filter and update expressions fit action.
func ValidateAction(action domain.Action, filter, updateExpressions bson.D) error {
	if action.NeedsFilter() && len(filter) == 0 {
		return domain.NewConfigError(domain.ErrMissingFilter,
			"If action is update or replace, filter must be set (action '%s').", action)
	}
	if action != domain.ActionUpdate && len(updateExpressions) > 0 {
		return domain.NewConfigError(domain.ErrUnexpectedUpdateExpressions,
			"Update expressions are only valid with action 'update', got '%s'.", action)
	}
	return nil
}
