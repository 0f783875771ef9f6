package validators

import "go.mongodb.org/mongo-driver/bson"

var LedgerValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"date",
			"start_hour",
			"end_hour",
			"total_reserved",
			"updated_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "objectId",
			},

			"date": bson.M{
				"bsonType": "date",
			},

			"start_hour": bson.M{
				"bsonType": "int",
				"minimum":  0,
				"maximum":  23,
			},

			"end_hour": bson.M{
				"bsonType": "int",
				"minimum":  1,
				"maximum":  24,
			},

			"total_reserved": bson.M{
				"bsonType": "int",
				"minimum":  1,
				"maximum":  50000,
			},

			"updated_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}
