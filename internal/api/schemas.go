package api

import "applicant-screening/internal/common/validation"

var turnSchema = validation.MustCompile(`{
  "type": "object",
  "properties": {
    "message": {"type": "string", "maxLength": 2000},
    "predefinedMessage": {
      "type": "object",
      "properties": {
        "action": {"type": "string", "enum": ["start", "select_job", "answer", "reset", "upload"]},
        "value": {"type": "string", "maxLength": 200},
        "jobId": {"type": "string", "maxLength": 64}
      },
      "required": ["action"],
      "additionalProperties": false
    }
  },
  "oneOf": [
    {"required": ["message"]},
    {"required": ["predefinedMessage"]}
  ],
  "additionalProperties": false
}`)

var statusSchema = validation.MustCompile(`{
  "type": "object",
  "properties": {
    "status": {"type": "string", "minLength": 1}
  },
  "required": ["status"],
  "additionalProperties": false
}`)
