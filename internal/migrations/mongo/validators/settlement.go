package validators

import "go.mongodb.org/mongo-driver/bson"

var SettlementValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"partner_id",
			"period_start",
			"period_end",
			"total_sales",
			"fee",
			"payout",
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

			"partner_name": bson.M{
				"bsonType": "string",
			},

			"shop_name": bson.M{
				"bsonType": "string",
			},

			"period": bson.M{
				"bsonType": "string",
			},

			"period_start": bson.M{
				"bsonType": "string",
				"pattern":  `^\d{4}-\d{2}-\d{2}$`,
			},

			"period_end": bson.M{
				"bsonType": "string",
				"pattern":  `^\d{4}-\d{2}-\d{2}$`,
			},

			"total_sales": bson.M{
				"bsonType": []string{"long", "int"},
				"minimum":  0,
			},

			"fee": bson.M{
				"bsonType": []string{"long", "int"},
				"minimum":  0,
			},

			"payout": bson.M{
				"bsonType": []string{"long", "int"},
				"minimum":  0,
			},

			"booking_count": bson.M{
				"bsonType": []string{"long", "int"},
				"minimum":  0,
			},

			"status": bson.M{
				"enum": []string{"pending", "processing", "completed", "failed"},
			},

			"transfer_info": bson.M{
				"bsonType": "object",
			},

			"notes": bson.M{
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
