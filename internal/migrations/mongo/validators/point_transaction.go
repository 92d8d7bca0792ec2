package validators

import "go.mongodb.org/mongo-driver/bson"

var PointTransactionValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"partner_id",
			"type",
			"amount",
			"status",
			"created_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "objectId",
			},

			"partner_id": bson.M{
				"bsonType":  "string",
				"minLength": 1,
			},

			"type": bson.M{
				"enum": []string{"charge", "refund"},
			},

			"amount": bson.M{
				"bsonType": []string{"long", "int"},
				"minimum":  1,
			},

			"points_granted": bson.M{
				"bsonType": []string{"long", "int"},
				"minimum":  0,
			},

			"commission": bson.M{
				"bsonType": []string{"long", "int"},
				"minimum":  0,
			},

			"external_session_id": bson.M{
				"bsonType": "string",
			},

			"status": bson.M{
				"enum": []string{"pending", "completed"},
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
