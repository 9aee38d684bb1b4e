package prompts

const classificationSpec = `{
  "documentType": "invoice | other",
  "confidence": 0.95
}`

const resultSpec = `{
  "headerFields": {
    "invoiceNumber": "INV-2041",
    "vendorName": "Meridian Freight Co",
    "total": "4120.50"
  },
  "lineItems": [
    {
      "lineId": "PO-88411-3",
      "description": "Ocean freight, 40ft container",
      "quantity": 2,
      "unitPrice": "1500.00",
      "amount": "3000.00",
      "matchStatus": "matched",
      "evidence": [
        { "page": 2, "field": "amount", "snippet": "2 x 1,500.00 .... 3,000.00" }
      ]
    }
  ],
  "unassignedEvidence": [
    { "page": 3, "snippet": "Fuel surcharge applied per contract 2024-11" }
  ],
  "presentFields": ["invoiceNumber", "vendorName", "total"],
  "missingFields": ["dueDate"],
  "confidence": 0.9
}`
