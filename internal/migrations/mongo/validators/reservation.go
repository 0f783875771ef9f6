package validators

import "go.mongodb.org/mongo-driver/bson"

var ReservationValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"group_id",
			"owner_id",
			"date",
			"start_hour",
			"end_hour",
			"reserved_count",
			"confirmed",
			"created_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "objectId",
			},

			"group_id": bson.M{
				"bsonType": "long",
				"minimum":  1,
			},

			"owner_id": bson.M{
				"bsonType": "long",
				"minimum":  1,
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

			"reserved_count": bson.M{
				"bsonType": "int",
				"minimum":  1,
			},

			"confirmed": bson.M{
				"bsonType": "bool",
			},

			"ledger_id": bson.M{
				"bsonType": "string",
			},

			"created_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}
