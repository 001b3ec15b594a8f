package feed

const activityChangedSchema = `{
  "type": "object",
  "title": "ActivityChanged",
  "properties": {
    "event_type": {"type": "string", "enum": ["activity.added", "activity.updated", "activity.deleted"]},
    "tenant_id": {"type": "string"},
    "subject": {"type": "string"},
    "activity_id": {"type": "string"},
    "type": {"type": "string", "minLength": 1},
    "duration": {"type": "integer", "minimum": 1},
    "calories": {"type": "integer", "minimum": 1},
    "position": {"type": "integer", "minimum": 0},
    "occurred_at": {"type": "string", "format": "date-time"}
  },
  "required": ["event_type", "tenant_id", "subject", "activity_id", "type", "duration", "calories", "position", "occurred_at"],
  "additionalProperties": false
}`
