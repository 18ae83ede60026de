package history

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/iyunix/go-chatstats/internal/domain"
)

const (
	colMessageID = "message_id"
	colChatID    = "chat_id"
	colUserID    = "user_id"
	colDate      = "date"

	// Quoted forms for raw select/group fragments.
	sqlText = `"text"`
	sqlDate = `"date"`
)

// Filter selects the rows an operation works on.
type Filter struct {
	ChatID  int64
	UserID  *int64
	MinDate *time.Time
}

func chatFilter(chatID int64, minDate *time.Time) Filter {
	return Filter{ChatID: chatID, MinDate: minDate}
}

func userFilter(chatID, userID int64, minDate *time.Time) Filter {
	return Filter{ChatID: chatID, UserID: &userID, MinDate: minDate}
}

// expressions builds the predicate list; chat is always constrained.
func (f Filter) expressions() []clause.Expression {
	exprs := []clause.Expression{
		clause.Eq{Column: clause.Column{Name: colChatID}, Value: f.ChatID},
	}
	if f.UserID != nil {
		exprs = append(exprs, clause.Eq{Column: clause.Column{Name: colUserID}, Value: *f.UserID})
	}
	if f.MinDate != nil {
		exprs = append(exprs, clause.Gte{Column: clause.Column{Name: colDate}, Value: f.MinDate.UTC()})
	}
	return exprs
}

// dayExpression truncates the date column to its UTC calendar day. postgres
// stores timestamptz, which DATE() would read in the session time zone.
func dayExpression(dialect string) string {
	if dialect == "postgres" {
		return "DATE(" + sqlDate + " AT TIME ZONE 'UTC')"
	}
	return "DATE(" + sqlDate + ")"
}

// scope is the single query path every read goes through.
func scope(tx *gorm.DB, f Filter) *gorm.DB {
	return tx.Model(&domain.HistoryMessage{}).Clauses(clause.Where{Exprs: f.expressions()})
}
