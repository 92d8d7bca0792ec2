package validators

import "go.mongodb.org/mongo-driver/bson"

var PartnerValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"name",
			"created_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "objectId",
			},

			"name": bson.M{
				"bsonType":  "string",
				"minLength": 1,
			},

			"shop_name": bson.M{
				"bsonType": "string",
			},

			"payout_account_ref": bson.M{
				"bsonType": "string",
			},

			"points_balance": bson.M{
				"bsonType": []string{"long", "int"},
				"minimum":  0,
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
