package mcpserver

// DataModelURI addresses the data model resource.
const DataModelURI = "lexdesk://data-model"

// DataModel describes the office collections so that LLM consumers can
// interpret tool output.
const DataModel = `# lexdesk Office Data Model

All tools are read-only. Dates are ISO-8601 (` + "`" + `YYYY-MM-DD` + "`" + `, optionally with a time).

## Collections

| Collection | Key fields | Notes |
|---|---|---|
| clients  | id, name, type, phone, email, emiratesId | type is Individual or Company |
| cases    | id, caseNumber, title, clientId, status, nextHearingDate | caseNumber is unique, case-insensitive |
| invoices | id, invoiceNumber, clientId, caseId, amount, finalAmount, status | status is Paid, Unpaid or Partial |
| expenses | id, category, amount, date, status | duplicates are collapsed |
| logs     | id, user, role, action, timestamp | newest first |

## Relationships

1. Every case belongs to exactly one client (` + "`" + `clientId` + "`" + `).
2. Every invoice references a case that belongs to the invoice's client.
3. A client with no cases owns a placeholder case with id ` + "`" + `auto-<clientId>` + "`" + `
   and a case number of the form ` + "`" + `AUTO-0001` + "`" + `.
4. Deleting a client deletes its cases and invoices. Deleting a case relinks its
   invoices to another case of the same client.

## Reminders

Reminders are derived, never stored:

- ` + "`" + `case_hearing` + "`" + `: one per case with a hearing date, due 09:00, priority high.
- ` + "`" + `doc_review` + "`" + `: one per document with a review reminder, due 10:00.
`
