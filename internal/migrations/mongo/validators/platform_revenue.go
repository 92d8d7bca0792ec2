package validators

import "go.mongodb.org/mongo-driver/bson"

var PlatformRevenueValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"type",
			"partner_id",
			"amount",
			"original_amount",
			"status",
			"created_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "objectId",
			},

			"type": bson.M{
				"enum": []string{"settlement_fee", "point_commission"},
			},

			"partner_id": bson.M{
				"bsonType":  "string",
				"minLength": 1,
			},

			"shop_id": bson.M{
				"bsonType": "string",
			},

			"amount": bson.M{
				"bsonType": []string{"long", "int"},
				"minimum":  0,
			},

			"original_amount": bson.M{
				"bsonType": []string{"long", "int"},
				"minimum":  0,
			},

			"commission_rate": bson.M{
				"bsonType": "double",
				"minimum":  0,
				"maximum":  1,
			},

			"status": bson.M{
				"enum": []string{"pending", "completed", "refunded"},
			},

			"transaction_id": bson.M{
				"bsonType": "string",
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
