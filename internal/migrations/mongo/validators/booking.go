package validators

import "go.mongodb.org/mongo-driver/bson"

var BookingValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"customer_id",
			"partner_id",
			"date",
			"price",
			"status",
			"payment_status",
			"created_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "objectId",
			},

			"customer_id": bson.M{
				"bsonType":  "string",
				"minLength": 1,
			},

			"partner_id": bson.M{
				"bsonType":  "string",
				"minLength": 1,
			},

			"shop_id": bson.M{
				"bsonType": "string",
			},

			"service_id": bson.M{
				"bsonType": "string",
			},

			"date": bson.M{
				"bsonType": "string",
				"pattern":  `^\d{4}-\d{2}-\d{2}$`,
			},

			"time": bson.M{
				"bsonType": "string",
			},

			"price": bson.M{
				"bsonType": []string{"long", "int"},
				"minimum":  0,
			},

			"payment_type": bson.M{
				"enum": []string{"full", "deposit", "direct"},
			},

			"deposit_amount": bson.M{
				"bsonType": []string{"long", "int"},
				"minimum":  0,
			},

			"remaining_amount": bson.M{
				"bsonType": []string{"long", "int"},
				"minimum":  0,
			},

			"status": bson.M{
				"enum": []string{
					"pending",
					"confirmed",
					"completed",
					"cancelled",
					"noshow",
					"cancellation_requested",
				},
			},

			"payment_status": bson.M{
				"enum": []string{"unpaid", "paid", "deposit_paid", "refunded"},
			},

			"refund_note": bson.M{
				"bsonType": "string",
			},

			"ai_risk_score": bson.M{
				"bsonType": []string{"double", "long", "int"},
			},

			"created_at": bson.M{
				"bsonType": "date",
			},

			"updated_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}
