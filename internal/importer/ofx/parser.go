// Package ofx imports bank statements in OFX/QFX format.
package ofx

import (
	"fmt"
	"io"
	"regexp"
	"strings"
	"unicode/utf8"

	"carteira/internal/core"

	"github.com/aclindsa/ofxgo"
)

var (
	severityRe = regexp.MustCompile(`(?i)<SEVERITY>(Info|Warn|Error)</SEVERITY>`)
	openTagRe  = regexp.MustCompile(`(?m)^(\s*<[A-Z][A-Z0-9._]*[A-Z0-9])$`)
)

// Record is one statement line converted to a transaction.
type Record struct {
	FITID       string
	Account     string
	Transaction core.Transaction
}

// Parse reads an OFX/QFX document and converts every bank and credit card
// statement line. Debits become expenses and credits become income; zero
// amounts are skipped.
func Parse(r io.Reader) ([]Record, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read OFX file: %w", err)
	}
	resp, err := ofxgo.ParseResponse(strings.NewReader(preprocess(string(content))))
	if err != nil {
		return nil, fmt.Errorf("parse OFX file: %w", err)
	}

	var out []Record
	for _, msg := range resp.Bank {
		stmt, ok := msg.(*ofxgo.StatementResponse)
		if !ok || stmt.BankTranList == nil {
			continue
		}
		for _, t := range stmt.BankTranList.Transactions {
			rec, ok, err := convert(t, string(stmt.BankAcctFrom.AcctID))
			if err != nil {
				return nil, err
			}
			if ok {
				out = append(out, rec)
			}
		}
	}
	for _, msg := range resp.CreditCard {
		stmt, ok := msg.(*ofxgo.CCStatementResponse)
		if !ok || stmt.BankTranList == nil {
			continue
		}
		for _, t := range stmt.BankTranList.Transactions {
			rec, ok, err := convert(t, string(stmt.CCAcctFrom.AcctID))
			if err != nil {
				return nil, err
			}
			if ok {
				out = append(out, rec)
			}
		}
	}
	return out, nil
}

// preprocess fixes formatting issues common in bank-generated SGML files.
func preprocess(content string) string {
	content = strings.TrimLeft(content, " \t\r\n")
	content = severityRe.ReplaceAllStringFunc(content, strings.ToUpper)
	return openTagRe.ReplaceAllString(content, "$1>")
}

func convert(t ofxgo.Transaction, account string) (Record, bool, error) {
	sign := t.TrnAmt.Sign()
	if sign == 0 {
		return Record{}, false, nil
	}
	// FloatString rounds half away from zero, matching ParseAmount.
	text := strings.TrimPrefix(t.TrnAmt.FloatString(2), "-")
	m, err := core.ParseAmount(text)
	if err != nil {
		return Record{}, false, fmt.Errorf("transaction %s: %w", t.FiTID, err)
	}
	if m.IsZero() {
		return Record{}, false, nil
	}

	typ := core.Income
	if sign < 0 {
		typ = core.Expense
	}
	return Record{
		FITID:   string(t.FiTID),
		Account: account,
		Transaction: core.Transaction{
			Type:        typ,
			Amount:      core.AmountOf(m),
			Description: description(t),
			Date:        core.DateOf(t.DtPosted.Time),
		},
	}, true, nil
}

func description(t ofxgo.Transaction) string {
	name := strings.TrimSpace(string(t.Name))
	if t.Payee != nil && strings.TrimSpace(string(t.Payee.Name)) != "" {
		name = strings.TrimSpace(string(t.Payee.Name))
	}
	if name == "" {
		name = strings.TrimSpace(string(t.Memo))
	}
	if utf8.RuneCountInString(name) > core.MaxDescriptionLength {
		name = string([]rune(name)[:core.MaxDescriptionLength])
	}
	return name
}
