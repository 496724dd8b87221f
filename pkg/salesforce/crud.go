package salesforce

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
)

// accountRecord is the subset of Account fields read back from SOQL.
type accountRecord struct {
	Id   string
	Name string
}

// FindAccountByName returns the ID of the first Account matching name, or ""
// when no Account exists.
func FindAccountByName(ctx context.Context, c Client, name string) (string, error) {
	if name == "" {
		return "", eris.New("sf: account name is required")
	}
	soql := fmt.Sprintf("SELECT Id, Name FROM Account WHERE Name = '%s' LIMIT 1", escapeSOQL(name))

	var result struct {
		Records []accountRecord
	}
	if err := c.Query(ctx, soql, &result); err != nil {
		return "", eris.Wrap(err, fmt.Sprintf("sf: find account %q", name))
	}
	if len(result.Records) == 0 {
		return "", nil
	}
	return result.Records[0].Id, nil
}

// CreateAccount creates a new Account record and returns the new Salesforce ID.
func CreateAccount(ctx context.Context, c Client, fields map[string]any) (string, error) {
	if fields["Name"] == nil || fields["Name"] == "" {
		return "", eris.New("sf: account Name is required")
	}
	id, err := c.InsertOne(ctx, "Account", fields)
	if err != nil {
		return "", eris.Wrap(err, "sf: create account")
	}
	return id, nil
}

// CreateContact creates a new Contact record linked to the given Account and
// returns the new Salesforce ID.
func CreateContact(ctx context.Context, c Client, accountID string, fields map[string]any) (string, error) {
	if accountID == "" {
		return "", eris.New("sf: account id is required for contact")
	}
	if fields == nil {
		fields = make(map[string]any)
	}
	fields["AccountId"] = accountID
	id, err := c.InsertOne(ctx, "Contact", fields)
	if err != nil {
		return "", eris.Wrap(err, fmt.Sprintf("sf: create contact for account %s", accountID))
	}
	return id, nil
}

// CreateTask creates a completed Task on the given Account carrying the call
// report summary, and returns the new Salesforce ID.
func CreateTask(ctx context.Context, c Client, accountID, subject, description string) (string, error) {
	if accountID == "" {
		return "", eris.New("sf: account id is required for task")
	}
	if subject == "" {
		return "", eris.New("sf: task subject is required")
	}
	id, err := c.InsertOne(ctx, "Task", map[string]any{
		"WhatId":      accountID,
		"Subject":     subject,
		"Description": description,
		"Status":      "Completed",
	})
	if err != nil {
		return "", eris.Wrap(err, fmt.Sprintf("sf: create task for account %s", accountID))
	}
	return id, nil
}

// escapeSOQL escapes single quotes and backslashes for literal interpolation.
func escapeSOQL(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `'`, `\'`)
}
