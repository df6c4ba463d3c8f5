package validators

import "go.mongodb.org/mongo-driver/bson"

// CollectionDocumentValidator returns the schema for the store documents:
// one per named collection, holding its records as an array.
func CollectionDocumentValidator(names []string) bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": []string{"_id", "records", "updated_at"},
			"properties": bson.M{
				"_id": bson.M{
					"bsonType":    "string",
					"enum":        names,
					"description": "collection name",
				},
				"records": bson.M{
					"bsonType": "array",
				},
				"updated_at": bson.M{
					"bsonType": "date",
				},
			},
		},
	}
}
