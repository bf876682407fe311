package extract

// buildPrompt creates the extraction prompt
func buildPrompt() string {
	return `You are an invoice data extraction expert. Analyze this invoice image.

Extract the following information and return it as JSON with EXACTLY this schema:
{
  "invoice_number": "string",
  "invoice_date": "YYYY-MM-DD",
  "vendor_name": "string",
  "vendor_address": "string",
  "customer_name": "string",
  "customer_address": "string",
  "subtotal": number,
  "tax": number,
  "total_amount": number,
  "currency": "string",
  "line_items": [
    {
      "description": "string",
      "quantity": number,
      "unit_price": number,
      "amount": number
    }
  ]
}

RULES:
- Use null for any field that cannot be determined. Never invent placeholder values.
- Dates must be ISO calendar dates (YYYY-MM-DD).
- Numbers must be plain numbers without currency symbols or thousands separators.
- Currency should be the ISO 4217 code when it can be determined (e.g. USD, EUR, INR).
- List line items in the order they appear on the invoice.

Return ONLY valid JSON.`
}
