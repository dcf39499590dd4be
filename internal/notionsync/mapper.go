package notionsync

import (
	"strconv"
	"time"

	"github.com/jomei/notionapi"
	"github.com/pedrolabre/personal-finance-manager/internal/service"
)

// Property names of the debts database.
const (
	PropName          = "Name"
	PropDebtID        = "Debt ID"
	PropTotal         = "Total"
	PropPaid          = "Paid"
	PropRemaining     = "Remaining"
	PropStatus        = "Status"
	PropPriority      = "Priority"
	PropType          = "Type"
	PropDescription   = "Description"
	PropInstallments  = "Installments"
	PropNextDue       = "Next Due"
	PropCreated       = "Created"
	PropInstallmented = "Installmented"
)

func richText(s string) []notionapi.RichText {
	return []notionapi.RichText{{
		Type: notionapi.ObjectTypeText,
		Text: &notionapi.Text{Content: s},
	}}
}

func dateProp(t time.Time) notionapi.DateProperty {
	d := notionapi.Date(time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC))
	return notionapi.DateProperty{Date: &notionapi.DateObject{Start: &d}}
}

// DebtToNotionProperties maps a debt and its derived figures to page
// properties.
func DebtToNotionProperties(v service.DebtView) notionapi.Properties {
	total, _ := v.Total.Float64()
	paid, _ := v.Paid.Float64()
	remaining, _ := v.Remaining.Float64()

	props := notionapi.Properties{
		PropName:          notionapi.TitleProperty{Title: richText(v.Name)},
		PropDebtID:        notionapi.RichTextProperty{RichText: richText(strconv.FormatInt(v.ID, 10))},
		PropTotal:         notionapi.NumberProperty{Number: total},
		PropPaid:          notionapi.NumberProperty{Number: paid},
		PropRemaining:     notionapi.NumberProperty{Number: remaining},
		PropStatus:        notionapi.SelectProperty{Select: notionapi.Option{Name: string(v.Status)}},
		PropInstallmented: notionapi.CheckboxProperty{Checkbox: v.Installmented},
		PropInstallments: notionapi.RichTextProperty{
			RichText: richText(strconv.Itoa(v.PaidCount) + "/" + strconv.Itoa(v.InstallmentCount)),
		},
	}

	if v.Priority != "" {
		props[PropPriority] = notionapi.SelectProperty{Select: notionapi.Option{Name: string(v.Priority)}}
	}
	if v.Type != "" {
		props[PropType] = notionapi.SelectProperty{Select: notionapi.Option{Name: string(v.Type)}}
	}
	if v.Description != "" {
		props[PropDescription] = notionapi.RichTextProperty{RichText: richText(v.Description)}
	}
	if v.NextDueDate != nil {
		props[PropNextDue] = dateProp(*v.NextDueDate)
	}
	if !v.CreatedAt.IsZero() {
		props[PropCreated] = dateProp(v.CreatedAt)
	}

	return props
}

// debtIDOf reads the debt ID back from a queried page. Pages returned by
// the API carry pointer property values.
func debtIDOf(page notionapi.Page) (int64, bool) {
	prop, ok := page.Properties[PropDebtID]
	if !ok {
		return 0, false
	}
	rt, ok := prop.(*notionapi.RichTextProperty)
	if !ok || len(rt.RichText) == 0 {
		return 0, false
	}
	text := rt.RichText[0].PlainText
	if text == "" && rt.RichText[0].Text != nil {
		text = rt.RichText[0].Text.Content
	}
	id, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}
